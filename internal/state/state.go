// Package state implements the process-wide channel map and its locking
// discipline (spec.md §4.1). The source's reentrant mutex is replaced with
// the Go-idiomatic equivalent DESIGN NOTES calls for: a single
// non-reentrant sync.Mutex, with every internal helper that needs to touch
// the map taking the already-acquired *Unlocked handle as a parameter
// instead of re-entering the lock. Nesting (prune and shutdown calling into
// shared helpers) is achieved by passing the handle down the call stack, not
// by recursive locking.
package state

import (
	"errors"
	"sync"
	"time"

	"github.com/rpipe-project/rpipe-server/internal/eventbus"
)

// ErrServerShutdown is returned by WithState once the server has begun
// shutting down.
var ErrServerShutdown = errors.New("state: server is shutting down")

// ErrAlreadyShutdown is returned by Shutdown if it is called more than
// once, matching the source's idempotency guard (spec.md §4.7).
var ErrAlreadyShutdown = errors.New("state: already shut down")

// Unlocked is the mutable handle passed to a WithState callback. It must
// not be retained past the callback's return — the lock backing it will
// have been released.
type Unlocked struct {
	Streams map[string]*Stream
	bus     *eventbus.Bus
}

// Publish emits a lifecycle event for channel to any eventbus subscribers
// (today, only the stats collector). Safe to call with a nil bus (tests
// that don't care about statistics).
func (u *Unlocked) Publish(kind eventbus.Kind, channel string, bytes int) {
	if u.bus == nil {
		return
	}
	u.bus.Publish(eventbus.ChannelEvent{Kind: kind, Channel: channel, Bytes: bytes, At: time.Now()})
}

// State is the thread-safe wrapper around the channel map, mirroring the
// source's State/UnlockedState split (original_source/rpipe/server/server/state.py).
type State struct {
	mu       sync.Mutex
	u        Unlocked
	shutdown bool
}

// New returns an empty, running State. bus may be nil if statistics are not
// needed (e.g. in unit tests focused purely on state-machine behavior).
func New(bus *eventbus.Bus) *State {
	return &State{u: Unlocked{Streams: make(map[string]*Stream), bus: bus}}
}

// WithState acquires the lock and invokes fn with the mutable state,
// releasing on every exit path. It fails with ErrServerShutdown once the
// server has begun shutting down — handlers translate that into a
// 503-equivalent response per spec.md §4.1.
func (s *State) WithState(fn func(*Unlocked) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return ErrServerShutdown
	}
	return fn(&s.u)
}

// Shutdown flips the shutdown flag and invokes fn (typically a snapshot
// save) while still holding the lock, so no handler can observe a
// half-shutdown state. A second call returns ErrAlreadyShutdown without
// invoking fn, matching spec.md §4.7's idempotency requirement.
func (s *State) Shutdown(fn func(*Unlocked) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return ErrAlreadyShutdown
	}
	s.shutdown = true
	if fn == nil {
		return nil
	}
	return fn(&s.u)
}

// IsShutdown reports the current shutdown flag without acquiring the lock
// for mutation; used only for diagnostics/health checks.
func (s *State) IsShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// Restore replaces the live stream map wholesale, used once at startup by
// the snapshot persistor before any handler has run. It is an error to call
// this once the map is non-empty, mirroring UnlockedState.load's guard
// against loading on top of existing state.
func (s *State) Restore(streams map[string]*Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.u.Streams) != 0 {
		return errors.New("state: refusing to load a snapshot on top of existing state")
	}
	s.u.Streams = streams
	return nil
}
