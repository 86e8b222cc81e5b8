// Package logctx carries a structured logger through a context.Context, the
// way the teacher's registry/context package carries a logrus entry.
package logctx

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

type loggerKey struct{}

// Logger is the leveled-logging interface handlers and background workers
// log through. It is satisfied by *logrus.Entry.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) *logrus.Entry
	WithFields(fields logrus.Fields) *logrus.Entry
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithFields returns a copy of ctx whose logger has the given fields
// attached, building on whatever logger is already in ctx (or the standard
// logger if none is set).
func WithFields(ctx context.Context, fields logrus.Fields) context.Context {
	return WithLogger(ctx, GetLogger(ctx).WithFields(fields))
}

// GetLogger returns the logger carried by ctx, falling back to the
// package-level standard logger if none was installed. Any keys passed are
// resolved against ctx and attached as fields, mirroring the teacher's
// GetLogger(ctx, keys...) convention.
func GetLogger(ctx context.Context, keys ...interface{}) Logger {
	var base Logger
	if v := ctx.Value(loggerKey{}); v != nil {
		if l, ok := v.(Logger); ok {
			base = l
		}
	}
	if base == nil {
		base = logrus.NewEntry(logrus.StandardLogger())
	}
	if len(keys) == 0 {
		return base
	}
	fields := logrus.Fields{}
	for _, k := range keys {
		if v := ctx.Value(k); v != nil {
			fields[fmt.Sprint(k)] = v
		}
	}
	return base.WithFields(fields)
}
