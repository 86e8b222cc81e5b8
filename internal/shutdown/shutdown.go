// Package shutdown wires SIGTERM/SIGINT to a single, idempotent snapshot-
// and-stop sequence, grounded on the source's signal handler in server.py
// (which calls State.shutdown once and saves the snapshot before exiting)
// and the teacher's use of a cancelable context to unwind cmd/registry's
// serve command.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rpipe-project/rpipe-server/internal/logctx"
	"github.com/rpipe-project/rpipe-server/internal/persist"
	"github.com/rpipe-project/rpipe-server/internal/state"
)

// Coordinator saves a snapshot and cancels the root context exactly once,
// whether triggered by an OS signal or an explicit Trigger call (e.g. an
// admin "stop" command per spec.md §4.8).
type Coordinator struct {
	State        *state.State
	SnapshotPath string
	cancel       context.CancelFunc
	once         sync.Once
}

// New returns a Coordinator and the context its caller should thread through
// the HTTP server and background workers; canceling happens exactly once,
// from whichever of signal delivery or Trigger happens first.
func New(parent context.Context, s *state.State, snapshotPath string) (*Coordinator, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &Coordinator{State: s, SnapshotPath: snapshotPath, cancel: cancel}, ctx
}

// Listen blocks until ctx is done or a SIGTERM/SIGINT arrives, then runs the
// shutdown sequence. Intended to be run in its own goroutine from main.
func (c *Coordinator) Listen(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
	case sig := <-sigCh:
		logctx.GetLogger(ctx).Infof("shutdown: received signal %s", sig)
	}
	c.Trigger(ctx)
}

// Trigger runs the shutdown sequence if it has not already run: mark the
// state shut down, save a snapshot of whatever it held, then cancel the
// context every other component watches. Safe to call more than once or
// concurrently; only the first call has any effect.
func (c *Coordinator) Trigger(ctx context.Context) {
	c.once.Do(func() {
		log := logctx.GetLogger(ctx)
		err := c.State.Shutdown(func(u *state.Unlocked) error {
			if c.SnapshotPath == "" {
				return nil
			}
			return persist.Save(c.SnapshotPath, u.Streams)
		})
		if err != nil && err != state.ErrAlreadyShutdown {
			log.Errorf("shutdown: snapshot save failed: %v", err)
		}
		c.cancel()
	})
}
