// Package persist implements the length-prefixed snapshot format described
// in spec.md §6, grounded on original_source/rpipe/server/server/state.py's
// _save/_load and _writeline/_readline helpers. Every third-party library
// this package might have reached for (compression, a structured binary
// codec) is explicitly out of scope per spec.md §1 — the wire format is a
// bespoke ASCII-framed layout the core must produce byte-for-byte, so this
// one component is grounded on the stdlib bufio/encoding-json combination
// the source's own hand-rolled framing maps onto most directly; see
// DESIGN.md for the justification.
package persist

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rpipe-project/rpipe-server/internal/osutil"
	"github.com/rpipe-project/rpipe-server/internal/state"
	"github.com/rpipe-project/rpipe-server/internal/version"
)

// MinSaveStateVersion is the oldest snapshot format version this binary
// will load, per spec.md §6.
var MinSaveStateVersion = version.MustParse("8.1.0")

// snapshotMeta is the JSON-serialized form of a Stream, excluding Data
// (which is framed separately as raw blocks), matching spec.md §6's
// "json_metadata contains the fields of Stream excluding data".
type snapshotMeta struct {
	Version        string `json:"version"`
	Encrypted      bool   `json:"encrypted"`
	Expire         string `json:"expire"`
	StreamID       string `json:"stream_id"`
	ReaderID       string `json:"reader_id"`
	Final          bool   `json:"final"`
	Locked         bool   `json:"locked"`
	UploadComplete bool   `json:"upload_complete"`
}

func writeFrame(w *bufio.Writer, payload []byte) error {
	if _, err := w.WriteString(strconv.Itoa(len(payload))); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return nil, fmt.Errorf("persist: malformed length prefix %q: %w", line, err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	nl, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if nl != '\n' {
		return nil, fmt.Errorf("persist: expected trailing newline after %d-byte frame", n)
	}
	return buf, nil
}

// Save writes every stream in streams to path atomically: it writes to a
// temp file in the same directory, under a restrictive umask and file
// mode, then renames into place. Per spec.md §4.6 this must only be called
// once the caller's state is already marked shut down and locked.
func Save(path string, streams map[string]*state.Stream) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	guard := osutil.NewDeleteOnFail(tmpPath)
	defer guard.Run()

	err = osutil.WithUmask(0o077, func() error {
		if err := tmp.Chmod(0o600); err != nil {
			return err
		}
		return writeSnapshot(tmp, streams)
	})
	closeErr := tmp.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	guard.Disarm()
	return nil
}

func writeSnapshot(f *os.File, streams map[string]*state.Stream) error {
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(version.Build() + "\n"); err != nil {
		return err
	}
	if err := writeFrame(w, []byte(strconv.Itoa(len(streams)))); err != nil {
		return err
	}
	for name, s := range streams {
		meta := snapshotMeta{
			Version:        s.Version.String(),
			Encrypted:      s.Encrypted,
			Expire:         s.Expire.Format(expireLayout),
			StreamID:       s.StreamID,
			ReaderID:       s.ReaderID,
			Final:          s.Final,
			Locked:         s.Locked,
			UploadComplete: s.UploadComplete,
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		header := fmt.Sprintf("%s %d %s", name, len(s.Data), metaJSON)
		if err := writeFrame(w, []byte(header)); err != nil {
			return err
		}
		for _, block := range s.Data {
			if err := writeFrame(w, block); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

const expireLayout = "2006-01-02T15:04:05.999999999Z07:00"

// Load reads a snapshot from path. A missing file is not an error: it
// returns an empty map, matching UnlockedState.load's "file not found ->
// empty state" behavior. A snapshot whose version is older than
// MinSaveStateVersion, or that otherwise fails to parse, also yields an
// empty map plus a descriptive error for the caller to log — per spec.md
// §4.6, snapshot corruption must never crash the server.
func Load(path string) (map[string]*state.Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*state.Stream{}, nil
		}
		return map[string]*state.Stream{}, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	verLine, err := r.ReadString('\n')
	if err != nil {
		return map[string]*state.Stream{}, fmt.Errorf("persist: reading version line: %w", err)
	}
	ver, err := version.Parse(strings.TrimRight(verLine, "\n"))
	if err != nil {
		return map[string]*state.Stream{}, fmt.Errorf("persist: parsing snapshot version: %w", err)
	}
	if ver.Less(MinSaveStateVersion) {
		return map[string]*state.Stream{}, fmt.Errorf("persist: snapshot version %s older than minimum %s", ver, MinSaveStateVersion)
	}

	countFrame, err := readFrame(r)
	if err != nil {
		return map[string]*state.Stream{}, fmt.Errorf("persist: reading stream count: %w", err)
	}
	count, err := strconv.Atoi(string(countFrame))
	if err != nil {
		return map[string]*state.Stream{}, fmt.Errorf("persist: malformed stream count: %w", err)
	}

	streams := make(map[string]*state.Stream, count)
	for i := 0; i < count; i++ {
		header, err := readFrame(r)
		if err != nil {
			return map[string]*state.Stream{}, fmt.Errorf("persist: reading stream %d header: %w", i, err)
		}
		name, blockCount, meta, err := parseHeader(header)
		if err != nil {
			return map[string]*state.Stream{}, err
		}
		streamVer, err := version.Parse(meta.Version)
		if err != nil {
			return map[string]*state.Stream{}, fmt.Errorf("persist: stream %q has invalid version: %w", name, err)
		}
		expire, err := parseTime(meta.Expire)
		if err != nil {
			return map[string]*state.Stream{}, fmt.Errorf("persist: stream %q has invalid expire: %w", name, err)
		}
		s := &state.Stream{
			Version:        streamVer,
			Encrypted:      meta.Encrypted,
			Expire:         expire,
			StreamID:       meta.StreamID,
			ReaderID:       meta.ReaderID,
			Final:          meta.Final,
			Locked:         false, // never resume mid-read across a restart
			UploadComplete: meta.UploadComplete,
		}
		s.Data = make([][]byte, blockCount)
		for b := 0; b < blockCount; b++ {
			block, err := readFrame(r)
			if err != nil {
				return map[string]*state.Stream{}, fmt.Errorf("persist: reading stream %q block %d: %w", name, b, err)
			}
			s.Data[b] = block
		}
		streams[name] = s
	}
	return streams, nil
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(expireLayout, s)
}

func parseHeader(header []byte) (name string, blockCount int, meta snapshotMeta, err error) {
	parts := strings.SplitN(string(header), " ", 3)
	if len(parts) != 3 {
		return "", 0, snapshotMeta{}, fmt.Errorf("persist: malformed stream header %q", header)
	}
	name = parts[0]
	blockCount, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, snapshotMeta{}, fmt.Errorf("persist: malformed block count in header %q: %w", header, err)
	}
	if err := json.Unmarshal([]byte(parts[2]), &meta); err != nil {
		return "", 0, snapshotMeta{}, fmt.Errorf("persist: malformed metadata in header %q: %w", header, err)
	}
	return name, blockCount, meta, nil
}
