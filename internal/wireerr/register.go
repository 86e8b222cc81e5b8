// Package wireerr provides a toolkit for defining and looking up the small
// integer wire codes the rpipe protocol repurposes from HTTP status codes
// (spec UploadEC/QueryEC/DownloadEC). A Code is identified by its group plus
// a string value; when one is registered it is assigned an HTTP status and
// a human-readable message, the same central-registration shape as the
// teacher's registry/api/errcode package.
package wireerr

import (
	"fmt"
	"net/http"
	"sync"
)

// Code identifies a registered error descriptor. It is never sent to
// clients itself: the descriptor's HTTPStatusCode is the wire code clients
// switch on, never the message text.
type Code int

// ErrorDescriptor carries the metadata registered for a Code.
type ErrorDescriptor struct {
	// Group names the code family: "upload", "query", "download", or
	// "admin".
	Group string
	// Value is a unique, uppercase identifier, e.g. "CONFLICT".
	Value string
	// Message is the default human-readable explanation.
	Message string
	// HTTPStatusCode is the numeric wire code returned to the client.
	HTTPStatusCode int
}

var (
	mu          sync.RWMutex
	descriptors = map[Code]ErrorDescriptor{}
	byValue     = map[string]Code{}
	next        Code = 1
)

// Register assigns and returns a Code for the given descriptor. It panics on
// a duplicate Value within a group, since that indicates a programming
// error in this package, not a runtime condition.
//
// Code is deliberately NOT the HTTP status itself: upload, query, and
// download share several HTTP statuses (426, 409, 412, 423, 204 all
// appear in more than one group per spec.md §4.3), so a status-keyed
// registry would let one group's registration silently shadow another's.
// Each Code is instead a small synthetic identifier; callers that need the
// wire status use Descriptor(code).HTTPStatusCode.
func Register(group string, d ErrorDescriptor) Code {
	mu.Lock()
	defer mu.Unlock()
	d.Group = group
	key := group + "." + d.Value
	if _, exists := byValue[key]; exists {
		panic(fmt.Sprintf("wireerr: duplicate registration for %s", key))
	}
	code := next
	next++
	descriptors[code] = d
	byValue[key] = code
	return code
}

// HTTPStatus returns the wire status code to send for code, or 500 if code
// is unregistered.
func HTTPStatus(code Code) int {
	if d, ok := Descriptor(code); ok {
		return d.HTTPStatusCode
	}
	return http.StatusInternalServerError
}

// Descriptor returns the descriptor registered for code, and whether one was
// found.
func Descriptor(code Code) (ErrorDescriptor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := descriptors[code]
	return d, ok
}

// Message returns the descriptor's message, or a generic fallback if code is
// unregistered.
func Message(code Code) string {
	if d, ok := Descriptor(code); ok {
		return d.Message
	}
	return "unknown error"
}
