package httpapi

import (
	"net/http"

	"github.com/rpipe-project/rpipe-server/internal/wireerr"
)

// writeWireError sends code's registered HTTP status with its message as
// the plain-text body, per spec.md §4.3: "clients switch on code, not
// text" — the status code itself IS the wire code, the body is purely for
// human debugging.
func writeWireError(w http.ResponseWriter, code wireerr.Code) {
	http.Error(w, wireerr.Message(code), wireerr.HTTPStatus(code))
}

// writeServerError logs err at the caller's discretion and returns a bare
// 500, matching spec.md §7's "bugs/assertion failures: 500, never crash".
func writeServerError(w http.ResponseWriter) {
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// writeShutdown returns the 503-equivalent spec.md §4.1 calls for once the
// server has begun shutting down.
func writeShutdown(w http.ResponseWriter) {
	http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
}
