package httpapi

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// logWriter adapts logrus to gorilla/handlers.CombinedLoggingHandler's
// io.Writer access-log sink, the way the teacher wires
// gorilla/handlers.CombinedLoggingHandler against its own logger in
// cmd/registry/main.go.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	logrus.WithField("component", "access").Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
