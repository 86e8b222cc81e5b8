package state

import (
	"time"

	"github.com/google/uuid"

	"github.com/rpipe-project/rpipe-server/internal/version"
)

// Stream is the per-channel in-memory record described in spec.md §3. All
// mutation happens while the owning State's lock is held; Stream itself has
// no locking of its own.
type Stream struct {
	// Version is the wire version that created this stream; immutable.
	Version version.Version
	// Encrypted declares whether Data holds opaque ciphertext; immutable.
	Encrypted bool
	// Expire is the absolute deadline after which the stream is reapable.
	Expire time.Time
	// StreamID binds subsequent writes to the writer that created the
	// stream.
	StreamID string
	// ReaderID is minted on the first consuming (non-peek) read and pins
	// the stream to a single reader thereafter.
	ReaderID string
	// Data is the FIFO queue of blocks, append-on-write, pop-on-read.
	Data [][]byte
	// Final is monotonic: once true it is never cleared.
	Final bool
	// Locked is set for the duration of a consuming read.
	Locked bool
	// UploadComplete distinguishes "writer finished" from "reader
	// finished"; set alongside Final by the writer's last PUT.
	UploadComplete bool
}

// NewStream creates a fresh Open stream, minting a new stream_id.
func NewStream(ver version.Version, encrypted bool, ttl time.Duration) *Stream {
	return &Stream{
		Version:   ver,
		Encrypted: encrypted,
		Expire:    time.Now().Add(ttl),
		StreamID:  uuid.NewString(),
	}
}

// TotalBytes returns the sum of all queued block lengths.
func (s *Stream) TotalBytes() int {
	n := 0
	for _, b := range s.Data {
		n += len(b)
	}
	return n
}

// Expired reports whether now is past s.Expire.
func (s *Stream) Expired(now time.Time) bool {
	return now.After(s.Expire)
}

// Exhausted reports whether the stream is final and fully drained — the
// state in which prune may remove it, per spec.md §4.2.
func (s *Stream) Exhausted() bool {
	return s.Final && len(s.Data) == 0
}

// Draining reports whether the stream is final but still has queued data.
func (s *Stream) Draining() bool {
	return s.Final && len(s.Data) > 0
}

// PushBlock appends a block to the queue if doing so would not exceed
// maxBytes. It returns false (without mutating s) if the pipe is full.
func (s *Stream) PushBlock(block []byte, maxBytes int) bool {
	if s.TotalBytes()+len(block) > maxBytes {
		return false
	}
	s.Data = append(s.Data, block)
	return true
}

// PopBlocks returns up to max queued blocks. If peek is true the queue is
// left untouched and ReaderID is never set — spec.md §4.2's peek semantics.
// Otherwise returned blocks are removed and readerID is recorded as the
// stream's pinned reader.
func (s *Stream) PopBlocks(max int, peek bool, readerID string) [][]byte {
	n := len(s.Data)
	if max > 0 && max < n {
		n = max
	}
	out := make([][]byte, n)
	copy(out, s.Data[:n])
	if peek {
		return out
	}
	s.Data = s.Data[n:]
	if s.ReaderID == "" {
		s.ReaderID = readerID
	}
	return out
}

// SetFinal marks the stream final; monotonic, never clears an existing
// final flag (spec.md §3 invariant).
func (s *Stream) SetFinal() {
	s.Final = true
	s.UploadComplete = true
}
