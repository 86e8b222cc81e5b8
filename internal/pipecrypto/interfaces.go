// Package pipecrypto declares the narrow interfaces the core depends on for
// compression and end-to-end encryption, without depending on any concrete
// codec or AEAD library. Per spec.md §1/§9 these are external collaborators:
// the wire only ever sees opaque bytes and the `encrypted` flag, and never
// needs to know how a block got that way.
package pipecrypto

// Compressor compresses and decompresses block payloads. The core never
// calls either method itself — it is the client's job per spec.md §1 — but
// the type exists here so that test doubles and any future in-process
// client tooling share one seam.
type Compressor interface {
	Compress(plain []byte) ([]byte, error)
	Decompress(packed []byte) ([]byte, error)
}

// AEAD encrypts and decrypts a block under a password-derived key. Like
// Compressor, the core treats `encrypted` as an opaque flag set by the
// client and never invokes this interface on the server's behalf.
type AEAD interface {
	Encrypt(plaintext []byte, password string) ([]byte, error)
	Decrypt(ciphertext []byte, password string) ([]byte, error)
}

// Signer produces a detached signature over an admin message.
type Signer interface {
	Sign(message []byte) ([]byte, error)
}

// Verifier checks a detached signature over an admin message against a
// configured public key. internal/admin's concrete implementation is backed
// by golang.org/x/crypto/ssh, per spec.md §4.5.
type Verifier interface {
	Verify(message, signature []byte) error
}
