package admin_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/rpipe-project/rpipe-server/internal/admin"
)

func genKeyPair(t *testing.T) (ssh.Signer, []byte) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromSigner(priv)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return signer, ssh.MarshalAuthorizedKey(sshPub)
}

func TestGateAcceptsValidEnvelope(t *testing.T) {
	signer, authorizedKey := genKeyPair(t)
	verifier, err := admin.NewSSHVerifier(authorizedKey)
	require.NoError(t, err)

	nonces := admin.NewNoncePool()
	uids, err := nonces.Issue(1)
	require.NoError(t, err)

	g := &admin.Gate{Verifier: verifier, Nonces: nonces}
	msg := admin.Message{Path: "/admin/stats", Args: map[string]string{}, UID: uids[0]}
	sig, err := signer.Sign(rand.Reader, msg.Canonical())
	require.NoError(t, err)

	env := admin.Envelope{Signature: ssh.Marshal(sig), UID: uids[0], Version: "8.1.0"}
	err = g.Check("/admin/stats", map[string]string{}, env, true)
	assert.NoError(t, err)
}

func TestGateRejectsReplayedNonce(t *testing.T) {
	signer, authorizedKey := genKeyPair(t)
	verifier, err := admin.NewSSHVerifier(authorizedKey)
	require.NoError(t, err)

	nonces := admin.NewNoncePool()
	uids, err := nonces.Issue(1)
	require.NoError(t, err)

	g := &admin.Gate{Verifier: verifier, Nonces: nonces}
	msg := admin.Message{Path: "/admin/stats", Args: map[string]string{}, UID: uids[0]}
	sig, err := signer.Sign(rand.Reader, msg.Canonical())
	require.NoError(t, err)
	env := admin.Envelope{Signature: ssh.Marshal(sig), UID: uids[0], Version: "8.1.0"}

	require.NoError(t, g.Check("/admin/stats", map[string]string{}, env, true))
	err = g.Check("/admin/stats", map[string]string{}, env, true)
	assert.ErrorIs(t, err, admin.ErrAccessDenied)
}

func TestGateRequiresTLSWhenConfigured(t *testing.T) {
	signer, authorizedKey := genKeyPair(t)
	verifier, err := admin.NewSSHVerifier(authorizedKey)
	require.NoError(t, err)

	nonces := admin.NewNoncePool()
	uids, err := nonces.Issue(1)
	require.NoError(t, err)

	g := &admin.Gate{Verifier: verifier, Nonces: nonces, RequireTLS: true}
	msg := admin.Message{Path: "/admin/stats", UID: uids[0]}
	sig, err := signer.Sign(rand.Reader, msg.Canonical())
	require.NoError(t, err)
	env := admin.Envelope{Signature: ssh.Marshal(sig), UID: uids[0], Version: "8.1.0"}

	err = g.Check("/admin/stats", nil, env, false)
	assert.ErrorIs(t, err, admin.ErrAccessDenied)
}
