package state

import (
	"errors"
	"time"

	"github.com/rpipe-project/rpipe-server/internal/eventbus"
	"github.com/rpipe-project/rpipe-server/internal/version"
)

// Protocol-level errors returned by the operations below. httpapi maps each
// to a wireerr.Code; this package stays free of any HTTP/wire dependency.
var (
	ErrUnknownChannel = errors.New("state: channel does not exist")
	ErrConflict       = errors.New("state: stream_id conflict")
	ErrWrongVersion   = errors.New("state: version mismatch for this stream")
	ErrPipeFull       = errors.New("state: pipe is full")
	ErrNoData         = errors.New("state: no data available")
	ErrLocked         = errors.New("state: channel locked by a concurrent read")
)

// CreateStream implements the Empty -> Open transition (spec.md §4.2). If a
// stream already exists for name it is rejected with ErrConflict unless it
// is Exhausted (final and drained), in which case it is replaced — the
// explicit resolution of the POST-on-existing-channel open question from
// spec.md §9.
func (u *Unlocked) CreateStream(name string, ver version.Version, encrypted bool, ttl time.Duration) (*Stream, error) {
	if existing, ok := u.Streams[name]; ok && !existing.Exhausted() {
		return nil, ErrConflict
	}
	s := NewStream(ver, encrypted, ttl)
	u.Streams[name] = s
	u.Publish(eventbus.Created, name, 0)
	return s, nil
}

// AppendStream implements the Open -> {Open, Draining, Exhausted}
// transitions (spec.md §4.2). Only a stream still in the Open state (not
// yet Final) accepts writes; the stream_id must match the writer that
// created it.
func (u *Unlocked) AppendStream(name, streamID string, ver version.Version, block []byte, final bool, maxBytes int) (*Stream, error) {
	s, ok := u.Streams[name]
	if !ok {
		return nil, ErrUnknownChannel
	}
	if !s.Version.Equal(ver) {
		return nil, ErrWrongVersion
	}
	if s.Final || s.StreamID != streamID {
		return nil, ErrConflict
	}
	if s.Locked {
		return nil, ErrLocked
	}
	if len(block) > 0 && !s.PushBlock(block, maxBytes) {
		return nil, ErrPipeFull
	}
	if final {
		s.SetFinal()
	}
	u.Publish(eventbus.Appended, name, len(block))
	if s.Exhausted() {
		u.Publish(eventbus.Drained, name, 0)
	}
	return s, nil
}

// ReadResult bundles what ReadStream returns, so callers can tell an empty
// read (retry-worthy) apart from a stream that no longer exists.
type ReadResult struct {
	Blocks [][]byte
	Final  bool
	Stream *Stream
}

// ReadStream implements the consuming/peek read described in spec.md §4.2.
// A non-peek read pins the stream to readerID on first use and rejects any
// other reader thereafter (single-reader invariant, spec.md §3).
func (u *Unlocked) ReadStream(name string, ver version.Version, peek bool, readerID string, maxBlocks int) (ReadResult, error) {
	s, ok := u.Streams[name]
	if !ok {
		return ReadResult{}, ErrUnknownChannel
	}
	if !s.Version.Equal(ver) {
		return ReadResult{}, ErrWrongVersion
	}
	if !peek && s.ReaderID != "" && s.ReaderID != readerID {
		return ReadResult{}, ErrConflict
	}
	if !peek && s.Locked {
		return ReadResult{}, ErrLocked
	}
	if len(s.Data) == 0 {
		return ReadResult{}, ErrNoData
	}
	if !peek {
		s.Locked = true
	}
	blocks := s.PopBlocks(maxBlocks, peek, readerID)
	if !peek {
		s.Locked = false
		popped := 0
		for _, b := range blocks {
			popped += len(b)
		}
		u.Publish(eventbus.Drained, name, popped)
	}
	return ReadResult{Blocks: blocks, Final: s.Final && len(s.Data) == 0, Stream: s}, nil
}

// DeleteStream implements the any -> Empty transition on DELETE
// (spec.md §4.2). It reports whether a stream existed to delete.
func (u *Unlocked) DeleteStream(name string) bool {
	if _, ok := u.Streams[name]; !ok {
		return false
	}
	delete(u.Streams, name)
	u.Publish(eventbus.Purged, name, 0)
	return true
}

// PruneSweep evicts every stream that is expired or Exhausted, returning
// the evicted channel names. Called by the prune worker, always under the
// state lock (spec.md §4.4).
func (u *Unlocked) PruneSweep(now time.Time) []string {
	var evicted []string
	for name, s := range u.Streams {
		if s.Expired(now) || s.Exhausted() {
			delete(u.Streams, name)
			evicted = append(evicted, name)
			u.Publish(eventbus.Evicted, name, 0)
		}
	}
	return evicted
}
