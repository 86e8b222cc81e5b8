// Package eventbus broadcasts channel lifecycle events (created, drained,
// evicted) from the state container and prune worker to any subscriber —
// today, only the stats collector — the same broadcaster-of-Sinks shape the
// teacher's notifications package builds on top of github.com/docker/go-events.
package eventbus

import (
	"time"

	events "github.com/docker/go-events"
)

// Kind identifies a channel lifecycle transition.
type Kind string

const (
	Created  Kind = "channel.created"
	Appended Kind = "channel.appended"
	Drained  Kind = "channel.drained"
	Evicted  Kind = "channel.evicted"
	Purged   Kind = "channel.purged"
)

// ChannelEvent is the events.Event payload broadcast on every transition.
type ChannelEvent struct {
	Kind    Kind
	Channel string
	Bytes   int
	At      time.Time
}

// Bus is a process-wide broadcaster. The zero value is not usable; use New.
type Bus struct {
	broadcaster *events.Broadcaster
}

// New returns a Bus with no subscribers.
func New() *Bus {
	return &Bus{broadcaster: events.NewBroadcaster()}
}

// Subscribe registers sink to receive every future event, returning an
// unsubscribe func.
func (b *Bus) Subscribe(sink events.Sink) func() {
	b.broadcaster.Add(sink)
	return func() { b.broadcaster.Remove(sink) }
}

// Publish broadcasts ev to all current subscribers. Errors from individual
// sinks are swallowed by the underlying broadcaster's best-effort delivery;
// this bus is for statistics and tests, never for correctness-critical
// state propagation.
func (b *Bus) Publish(ev ChannelEvent) {
	_ = b.broadcaster.Write(ev)
}

// Close shuts the broadcaster down, releasing all subscribers.
func (b *Bus) Close() error {
	return b.broadcaster.Close()
}

// SinkFunc adapts a plain function to an events.Sink, for subscribers that
// don't need to track their own state.
type SinkFunc func(ChannelEvent)

func (f SinkFunc) Write(ev events.Event) error {
	if ce, ok := ev.(ChannelEvent); ok {
		f(ce)
	}
	return nil
}

func (f SinkFunc) Close() error { return nil }
