// Package stats implements the global and per-channel counters spec.md §3
// calls for, subscribed to the eventbus the way the teacher's
// notifications package subscribes its endpoint metrics to event sinks,
// and exported via github.com/docker/go-metrics the way the teacher's
// metrics package namespaces its prometheus counters.
package stats

import (
	"sync"
	"time"

	gometrics "github.com/docker/go-metrics"

	"github.com/rpipe-project/rpipe-server/internal/eventbus"
)

// Namespace is this server's prometheus namespace, mirroring the teacher's
// metrics.StorageNamespace pattern.
var Namespace = gometrics.NewNamespace("rpipe", "channels", nil)

var (
	bytesInCounter   = Namespace.NewCounter("bytes_in_total", "total bytes written across all channels")
	bytesOutCounter  = Namespace.NewCounter("bytes_out_total", "total bytes read across all channels")
	createdCounter   = Namespace.NewCounter("streams_created_total", "total streams created")
	expiredCounter   = Namespace.NewCounter("streams_expired_total", "total streams evicted by prune")
	rejectionCounter = Namespace.NewLabeledCounter("rejections_total", "total operations rejected, by kind", "kind")
)

func init() {
	gometrics.Register(Namespace)
}

// Channel holds the per-channel counters spec.md §3 describes: bytes in,
// bytes out. Safe for concurrent use.
type Channel struct {
	mu       sync.Mutex
	BytesIn  int
	BytesOut int
}

// Collector aggregates global and per-channel counters from eventbus
// events. The zero value is not usable; use NewCollector.
type Collector struct {
	mu       sync.Mutex
	channels map[string]*Channel
	global   struct {
		BytesIn, BytesOut       int
		StreamsCreated, Expired int
		Rejections              map[string]int
	}
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	c := &Collector{channels: make(map[string]*Channel)}
	c.global.Rejections = make(map[string]int)
	return c
}

// Sink adapts the collector to an eventbus.SinkFunc for Bus.Subscribe.
func (c *Collector) Sink() eventbus.SinkFunc {
	return c.handle
}

func (c *Collector) handle(ev eventbus.ChannelEvent) {
	c.mu.Lock()
	ch, ok := c.channels[ev.Channel]
	if !ok {
		ch = &Channel{}
		c.channels[ev.Channel] = ch
	}
	c.mu.Unlock()

	switch ev.Kind {
	case eventbus.Created:
		c.mu.Lock()
		c.global.StreamsCreated++
		c.mu.Unlock()
		createdCounter.Inc()
	case eventbus.Appended:
		ch.mu.Lock()
		ch.BytesIn += ev.Bytes
		ch.mu.Unlock()
		c.mu.Lock()
		c.global.BytesIn += ev.Bytes
		c.mu.Unlock()
		bytesInCounter.Inc(float64(ev.Bytes))
	case eventbus.Drained:
		ch.mu.Lock()
		ch.BytesOut += ev.Bytes
		ch.mu.Unlock()
		c.mu.Lock()
		c.global.BytesOut += ev.Bytes
		c.mu.Unlock()
		bytesOutCounter.Inc(float64(ev.Bytes))
	case eventbus.Evicted:
		c.mu.Lock()
		c.global.Expired++
		delete(c.channels, ev.Channel)
		c.mu.Unlock()
		expiredCounter.Inc()
	case eventbus.Purged:
		c.mu.Lock()
		delete(c.channels, ev.Channel)
		c.mu.Unlock()
	}
}

// RecordRejection increments the rejection counter for kind (e.g.
// "upload.CONFLICT", "upload.WAIT", "download.NO_DATA"), both the
// prometheus series and the in-process snapshot used by /admin/stats.
func (c *Collector) RecordRejection(kind string) {
	c.mu.Lock()
	c.global.Rejections[kind]++
	c.mu.Unlock()
	rejectionCounter.WithValues(kind).Inc()
}

// Snapshot is the JSON shape returned by the admin stats action.
type Snapshot struct {
	BytesIn        int            `json:"bytes_in"`
	BytesOut       int            `json:"bytes_out"`
	StreamsCreated int            `json:"streams_created"`
	StreamsExpired int            `json:"streams_expired"`
	Rejections     map[string]int `json:"rejections"`
	At             time.Time      `json:"at"`
}

// Snapshot returns a point-in-time copy of the global counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	rejections := make(map[string]int, len(c.global.Rejections))
	for k, v := range c.global.Rejections {
		rejections[k] = v
	}
	return Snapshot{
		BytesIn:        c.global.BytesIn,
		BytesOut:       c.global.BytesOut,
		StreamsCreated: c.global.StreamsCreated,
		StreamsExpired: c.global.Expired,
		Rejections:     rejections,
		At:             time.Now(),
	}
}
