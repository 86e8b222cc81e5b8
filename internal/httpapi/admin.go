package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rpipe-project/rpipe-server/internal/admin"
	"github.com/rpipe-project/rpipe-server/internal/state"
	"github.com/rpipe-project/rpipe-server/internal/wireerr"
)

// adminUIDBatchSize matches the client's deque-refill pattern in
// original_source/rpipe/client/admin.py's _Methods._request, which pulls
// one uid per request and refills in batches.
const adminUIDBatchSize = 16

// handleAdminUID implements GET /admin/uid: issues a batch of nonces.
func (a *App) handleAdminUID(w http.ResponseWriter, r *http.Request) {
	uids, err := a.Nonces.Issue(adminUIDBatchSize)
	if err != nil {
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, uids)
}

// adminCommands is the explicit command table spec.md §9 calls for in
// place of the source's attribute-interception dispatch
// (original_source/rpipe/client/admin.py's _Methods/__getattribute__).
// Each entry is only reached after Gate.Check has verified the envelope.
var adminCommands = map[string]func(*App, *Context, map[string]string) (interface{}, error){
	"debug": func(a *App, _ *Context, _ map[string]string) (interface{}, error) {
		return a.Config.Debug, nil
	},
	"stats": func(a *App, _ *Context, _ map[string]string) (interface{}, error) {
		return a.Stats.Snapshot(), nil
	},
	"channels": func(a *App, _ *Context, _ map[string]string) (interface{}, error) {
		out := make(map[string]ChannelInfo)
		err := a.State.WithState(func(u *state.Unlocked) error {
			for name, s := range u.Streams {
				out[name] = ChannelInfo{
					Version:   s.Version.String(),
					Encrypted: s.Encrypted,
					Expire:    s.Expire,
					Bytes:     s.TotalBytes(),
					Final:     s.Final,
				}
			}
			return nil
		})
		return out, err
	},
	"stop": func(a *App, _ *Context, _ map[string]string) (interface{}, error) {
		if a.StopFn != nil {
			go a.StopFn()
		}
		return "stopping", nil
	},
}

// handleAdminCommand implements POST /admin/{cmd}: verifies the signed
// envelope (spec.md §4.5) then dispatches to the command table.
func (a *App) handleAdminCommand(w http.ResponseWriter, r *http.Request) {
	ctx := newContext(r)
	cmd := mux.Vars(r)["cmd"]
	fn, known := adminCommands[cmd]

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeServerError(w)
		return
	}
	var env admin.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		writeWireError(w, wireerr.AdminAccessDenied)
		return
	}

	args := flattenQuery(r.URL.Query())
	path := "/admin/" + cmd
	if err := a.Gate.Check(path, args, env, r.TLS != nil || a.Config.Debug); err != nil {
		if errors.Is(err, admin.ErrAccessDenied) {
			ctx.log().Error("admin: access denied")
			writeWireError(w, wireerr.AdminAccessDenied)
			return
		}
		// Any other Gate error is CheckVersion rejecting the admin
		// client's declared version.
		writeWireError(w, wireerr.AdminIllegalVersion)
		return
	}

	if !known {
		http.NotFound(w, r)
		return
	}
	result, err := fn(a, ctx, args)
	if err != nil {
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func flattenQuery(q map[string][]string) map[string]string {
	out := make(map[string]string, len(q))
	for k, v := range q {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
