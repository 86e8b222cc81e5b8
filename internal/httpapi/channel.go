package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rpipe-project/rpipe-server/internal/eventbus"
	"github.com/rpipe-project/rpipe-server/internal/state"
	"github.com/rpipe-project/rpipe-server/internal/version"
	"github.com/rpipe-project/rpipe-server/internal/wireerr"
)

const maxReadBlocks = 64

// handleCreate implements POST /c/{C} (spec.md §4.3): Empty -> Open.
func (a *App) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := newContext(r)
	ver, ok := a.requireVersion(w, r, wireerr.UploadIllegalVersion)
	if !ok {
		return
	}

	final := r.URL.Query().Get("final") == "true"
	encrypted := r.URL.Query().Get("encrypted") == "true"
	ttl := a.Config.Limits.DefaultTTL
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			writeWireError(w, wireerr.UploadStreamID)
			return
		}
		ttl = time.Duration(secs) * time.Second
	}
	if a.Config.Limits.MaxTTL > 0 && ttl > a.Config.Limits.MaxTTL {
		ttl = a.Config.Limits.MaxTTL
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, int64(a.Config.Limits.MaxPipeBytes)+1))
	if err != nil {
		writeServerError(w)
		return
	}

	var created *state.Stream
	err = a.State.WithState(func(u *state.Unlocked) error {
		s, err := u.CreateStream(ctx.Channel, ver, encrypted, ttl)
		if err != nil {
			return err
		}
		if len(body) > 0 {
			if !s.PushBlock(body, a.Config.Limits.MaxPipeBytes) {
				u.DeleteStream(ctx.Channel)
				return state.ErrPipeFull
			}
			u.Publish(eventbus.Appended, ctx.Channel, len(body))
		}
		if final {
			s.SetFinal()
		}
		created = s
		return nil
	})
	if !a.handleStateErr(w, err, uploadErrFor) {
		return
	}

	w.Header().Set("stream_id", created.StreamID)
	w.Header().Set("max_size", strconv.Itoa(a.Config.Limits.MaxPipeBytes))
	w.WriteHeader(http.StatusOK)
}

// handleAppend implements PUT /c/{C} (spec.md §4.3): Open -> {Open,
// Draining, Exhausted}.
func (a *App) handleAppend(w http.ResponseWriter, r *http.Request) {
	ctx := newContext(r)
	ver, ok := a.requireVersion(w, r, wireerr.UploadIllegalVersion)
	if !ok {
		return
	}
	streamID := r.URL.Query().Get("stream_id")
	if streamID == "" {
		writeWireError(w, wireerr.UploadStreamID)
		return
	}
	final := r.URL.Query().Get("final") == "true"

	body, err := io.ReadAll(io.LimitReader(r.Body, int64(a.Config.Limits.MaxPipeBytes)+1))
	if err != nil {
		writeServerError(w)
		return
	}

	err = a.State.WithState(func(u *state.Unlocked) error {
		_, err := u.AppendStream(ctx.Channel, streamID, ver, body, final, a.Config.Limits.MaxPipeBytes)
		return err
	})
	if !a.handleStateErr(w, err, uploadErrFor) {
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleRead implements GET /c/{C} (spec.md §4.3): a peek returns every
// buffered block without consuming it, a consuming read pops one block by
// default (or up to "override" blocks, capped at maxReadBlocks).
func (a *App) handleRead(w http.ResponseWriter, r *http.Request) {
	ctx := newContext(r)
	ver, ok := a.requireVersion(w, r, wireerr.DownloadIllegalVersion)
	if !ok {
		return
	}
	peek := r.URL.Query().Get("peek") == "true"
	readerID := r.Header.Get("X-Reader-Id")
	if readerID == "" {
		readerID = r.RemoteAddr
	}

	// A peek is a snapshot: it always returns everything currently queued,
	// since there is no "next" read to leave blocks for. A consuming read
	// pops one queued chunk per call by default, matching the two separate
	// GETs in spec.md §8's drain scenario; "override" lets a client ask for
	// more in one round trip, capped at maxReadBlocks.
	limit := 0
	if !peek {
		limit = 1
		if raw := r.URL.Query().Get("override"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}
		if limit > maxReadBlocks {
			limit = maxReadBlocks
		}
	}

	var res state.ReadResult
	err := a.State.WithState(func(u *state.Unlocked) error {
		var err error
		res, err = u.ReadStream(ctx.Channel, ver, peek, readerID, limit)
		return err
	})
	if !a.handleStateErr(w, err, downloadErrFor) {
		return
	}

	w.Header().Set("final", strconv.FormatBool(res.Final))
	w.Header().Set("encrypted", strconv.FormatBool(res.Stream.Encrypted))
	w.WriteHeader(http.StatusOK)
	for _, block := range res.Blocks {
		w.Write(block)
	}
}

// handleDelete implements DELETE /c/{C}: any state -> Empty.
func (a *App) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := newContext(r)
	err := a.State.WithState(func(u *state.Unlocked) error {
		u.DeleteStream(ctx.Channel)
		return nil
	})
	if err == state.ErrServerShutdown {
		writeShutdown(w)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ChannelInfo is the JSON shape returned by GET /q/{C}, supplementing
// spec.md §4.3 with the exact fields the original CLI's `_query` mode
// prints (original_source/rpipe/client/client/client.py's _query).
type ChannelInfo struct {
	Version   string    `json:"version"`
	Encrypted bool      `json:"encrypted"`
	Expire    time.Time `json:"expire"`
	Bytes     int       `json:"bytes"`
	Final     bool      `json:"final"`
}

// handleQuery implements GET /q/{C}: metadata without consuming. An
// Exhausted stream (final and fully drained) is reported as absent.
func (a *App) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := newContext(r)
	var info ChannelInfo
	var found bool
	err := a.State.WithState(func(u *state.Unlocked) error {
		s, ok := u.Streams[ctx.Channel]
		if !ok || s.Exhausted() {
			return nil
		}
		found = true
		info = ChannelInfo{
			Version:   s.Version.String(),
			Encrypted: s.Encrypted,
			Expire:    s.Expire,
			Bytes:     s.TotalBytes(),
			Final:     s.Final,
		}
		return nil
	})
	if err == state.ErrServerShutdown {
		writeShutdown(w)
		return
	}
	if !found {
		writeWireError(w, wireerr.QueryNoData)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// requireVersion parses the "version" query parameter and checks it
// against the server's min/ban policy, writing illegalCode and returning
// ok=false on any failure.
func (a *App) requireVersion(w http.ResponseWriter, r *http.Request, illegalCode wireerr.Code) (version.Version, bool) {
	raw := r.URL.Query().Get("version")
	ver, err := version.Parse(raw)
	if err != nil {
		writeWireError(w, illegalCode)
		return version.Version{}, false
	}
	if !a.VersionOK(ver) {
		writeWireError(w, illegalCode)
		return version.Version{}, false
	}
	return ver, true
}

// handleStateErr translates a state-package sentinel error into the wire
// response, returning false if it already wrote one. errFor maps the
// state package's protocol errors to this verb's wireerr.Code family.
func (a *App) handleStateErr(w http.ResponseWriter, err error, errFor func(error) (wireerr.Code, bool)) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, state.ErrServerShutdown) {
		writeShutdown(w)
		return false
	}
	if code, ok := errFor(err); ok {
		if a.Stats != nil {
			if d, ok := wireerr.Descriptor(code); ok {
				a.Stats.RecordRejection(d.Group + "." + d.Value)
			}
		}
		writeWireError(w, code)
		return false
	}
	writeServerError(w)
	return false
}

func uploadErrFor(err error) (wireerr.Code, bool) {
	switch {
	case errors.Is(err, state.ErrUnknownChannel):
		return wireerr.UploadStreamID, true
	case errors.Is(err, state.ErrConflict):
		return wireerr.UploadConflict, true
	case errors.Is(err, state.ErrWrongVersion):
		return wireerr.UploadWrongVersion, true
	case errors.Is(err, state.ErrLocked):
		return wireerr.UploadLocked, true
	case errors.Is(err, state.ErrPipeFull):
		return wireerr.UploadWait, true
	default:
		return 0, false
	}
}

func downloadErrFor(err error) (wireerr.Code, bool) {
	switch {
	case errors.Is(err, state.ErrUnknownChannel):
		return wireerr.DownloadNoData, true
	case errors.Is(err, state.ErrWrongVersion):
		return wireerr.DownloadWrongVersion, true
	case errors.Is(err, state.ErrConflict):
		return wireerr.DownloadConflict, true
	case errors.Is(err, state.ErrLocked):
		return wireerr.DownloadLocked, true
	case errors.Is(err, state.ErrNoData):
		return wireerr.DownloadNoData, true
	default:
		return 0, false
	}
}
