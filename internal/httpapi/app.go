package httpapi

import (
	"net/http"
	"time"

	gorhandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/rpipe-project/rpipe-server/internal/admin"
	"github.com/rpipe-project/rpipe-server/internal/config"
	"github.com/rpipe-project/rpipe-server/internal/state"
	"github.com/rpipe-project/rpipe-server/internal/stats"
	"github.com/rpipe-project/rpipe-server/internal/version"
)

// App bundles the collaborators every handler needs, the same role the
// teacher's handlers.App plays for the registry.
type App struct {
	State      *state.State
	Config     *config.Configuration
	Stats      *stats.Collector
	Gate       *admin.Gate
	Nonces     *admin.NoncePool
	Version    version.Version
	MinVersion version.Version
	Banned     []version.Version
	// StopFn, if set, is invoked (in its own goroutine) by the admin
	// "stop" command to trigger a graceful shutdown.
	StopFn func()
}

// VersionOK reports whether clientVersion satisfies this server's
// min-version and ban-list policy (spec.md §4.3/§7's "version gated"
// disposition).
func (a *App) VersionOK(clientVersion version.Version) bool {
	if clientVersion.Less(a.MinVersion) {
		return false
	}
	for _, b := range a.Banned {
		if clientVersion.Equal(b) {
			return false
		}
	}
	return true
}

// NewRouter builds the complete HTTP handler: routing, per-request
// timeout, and access logging, in that wrapping order from innermost to
// outermost — the same layering the teacher's cmd/registry main.go
// applies around its app.
func NewRouter(app *App) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/c/{channel}", app.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/c/{channel}", app.handleAppend).Methods(http.MethodPut)
	r.HandleFunc("/c/{channel}", app.handleRead).Methods(http.MethodGet)
	r.HandleFunc("/c/{channel}", app.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/q/{channel}", app.handleQuery).Methods(http.MethodGet)
	r.HandleFunc("/version", app.handleVersion).Methods(http.MethodGet)
	r.HandleFunc("/supported", app.handleSupported).Methods(http.MethodGet)
	r.HandleFunc("/admin/uid", app.handleAdminUID).Methods(http.MethodGet)
	r.HandleFunc("/admin/{cmd}", app.handleAdminCommand).Methods(http.MethodPost)

	timeout := app.Config.Limits.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	timed := http.TimeoutHandler(r, timeout, "request timed out")

	return gorhandlers.CombinedLoggingHandler(logWriter{}, timed)
}
