// Package prune implements the background reaper described in spec.md §4.4:
// a ticker-driven sweep that evicts expired and exhausted streams, grounded
// on the source's prune thread (original_source/rpipe/server/server/state.py's
// UnlockedState.prune, called periodically from server.py's reaper loop).
package prune

import (
	"context"
	"time"

	"github.com/rpipe-project/rpipe-server/internal/logctx"
	"github.com/rpipe-project/rpipe-server/internal/state"
)

// Worker periodically sweeps s for reapable streams until ctx is canceled.
type Worker struct {
	State    *state.State
	Interval time.Duration
}

// New returns a Worker with the given state and sweep interval.
func New(s *state.State, interval time.Duration) *Worker {
	return &Worker{State: s, Interval: interval}
}

// Run blocks until ctx is canceled, sweeping every Interval. It is meant to
// be started in its own goroutine from main.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.sweep(ctx, now)
		}
	}
}

func (w *Worker) sweep(ctx context.Context, now time.Time) {
	log := logctx.GetLogger(ctx)
	var evicted []string
	err := w.State.WithState(func(u *state.Unlocked) error {
		evicted = u.PruneSweep(now)
		return nil
	})
	if err != nil {
		// ErrServerShutdown is expected once shutdown begins; the ticker's
		// own goroutine exits shortly after via ctx cancellation.
		if err != state.ErrServerShutdown {
			log.Warnf("prune: sweep failed: %v", err)
		}
		return
	}
	for _, name := range evicted {
		log.WithField("channel", name).Debug("prune: evicted channel")
	}
}
