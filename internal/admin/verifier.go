package admin

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"

	"github.com/rpipe-project/rpipe-server/internal/pipecrypto"
)

// ErrAccessDenied is wrapped by Gate.Check and the verifiers for any failure
// that should map to wireerr.AdminAccessDenied (spec.md §4.5): malformed
// envelope, plaintext transport, unknown/consumed nonce, bad signature, or
// no key configured.
var ErrAccessDenied = errors.New("admin: access denied")

// denyAllVerifier rejects every signature; it is the Gate's default when no
// authorized key is configured, so an unconfigured admin channel fails
// closed rather than panicking on a nil Verifier.
type denyAllVerifier struct{}

func (denyAllVerifier) Verify(_, _ []byte) error {
	return fmt.Errorf("%w: no admin key configured", ErrAccessDenied)
}

// SSHVerifier implements pipecrypto.Verifier against a fixed authorized
// public key, the server-side counterpart of the client's SSH private key
// signing in original_source/rpipe/client/admin.py.
type SSHVerifier struct {
	key ssh.PublicKey
}

var _ pipecrypto.Verifier = (*SSHVerifier)(nil)

// NewSSHVerifier parses a single authorized_keys-format line into a
// verifier.
func NewSSHVerifier(authorizedKeyLine []byte) (*SSHVerifier, error) {
	key, _, _, _, err := ssh.ParseAuthorizedKey(authorizedKeyLine)
	if err != nil {
		return nil, fmt.Errorf("admin: parsing authorized key: %w", err)
	}
	return &SSHVerifier{key: key}, nil
}

// Verify checks signature (an ssh-wire-encoded detached signature) over
// message against the configured key.
func (v *SSHVerifier) Verify(message, signature []byte) error {
	sig, err := unmarshalSignature(signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	if err := v.key.Verify(message, sig); err != nil {
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	return nil
}

func unmarshalSignature(raw []byte) (*ssh.Signature, error) {
	var sig ssh.Signature
	if err := ssh.Unmarshal(raw, &sig); err != nil {
		return nil, err
	}
	return &sig, nil
}

// Gate enforces the nonce-consume, version-check, and signature-verify
// sequence spec.md §4.5 lists, in that order, plus the TLS-or-debug
// transport check. It holds no state of its own beyond its collaborators,
// so it can be constructed fresh per request or shared.
type Gate struct {
	Verifier     pipecrypto.Verifier
	Nonces       *NoncePool
	RequireTLS   bool
	CheckVersion func(clientVersion string) error
}

// Check runs the full admin-request verification sequence for path/args
// against env. transportOK reports whether the inbound request arrived
// over TLS or the server is running in debug mode; RequireTLS only
// rejects when transportOK is false.
func (g *Gate) Check(path string, args map[string]string, env Envelope, transportOK bool) error {
	if g.Verifier == nil {
		g.Verifier = denyAllVerifier{}
	}
	if err := env.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	if g.RequireTLS && !transportOK {
		return fmt.Errorf("%w: refusing admin request over plaintext", ErrAccessDenied)
	}
	if !g.Nonces.Consume(env.UID) {
		return fmt.Errorf("%w: nonce unknown or already consumed", ErrAccessDenied)
	}
	if g.CheckVersion != nil {
		if err := g.CheckVersion(env.Version); err != nil {
			return err
		}
	}
	msg := Message{Path: path, Args: args, UID: env.UID}
	if err := g.Verifier.Verify(msg.Canonical(), env.Signature); err != nil {
		return err
	}
	return nil
}
