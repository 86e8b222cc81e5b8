// Package httpapi implements the wire-level request dispatcher of
// spec.md §4.3: the channel verbs, the query/version/supported endpoints,
// and the admin envelope. Routing follows the teacher's registry/handlers
// package — a *Context carried per request, handlers as methods on *App,
// gorilla/mux for path variables and per-verb method matching,
// gorilla/handlers for access logging.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rpipe-project/rpipe-server/internal/logctx"
)

// Context carries the request-scoped values handlers need, mirroring the
// shape (not the content) of the teacher's handlers.Context.
type Context struct {
	context.Context

	// Channel is the {C} path variable, empty for routes that don't carry
	// one.
	Channel string
}

func newContext(r *http.Request) *Context {
	ctx := r.Context()
	vars := mux.Vars(r)
	return &Context{Context: ctx, Channel: vars["channel"]}
}

func (c *Context) log() logctx.Logger {
	return logctx.GetLogger(c.Context)
}
