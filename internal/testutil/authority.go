// Package testutil provides test fixtures shared across packages,
// chiefly an in-memory stand-in for the discovery authority's signing
// key so tests can mint valid and corrupted detached signatures.
package testutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"testing"
)

// SigningAuthority holds an ephemeral Ed25519 keypair and exposes the
// two signature encodings the verifier accepts. The private key never
// leaves the test process.
type SigningAuthority struct {
	priv  ed25519.PrivateKey
	pub   ed25519.PublicKey
	keyID [8]byte
}

// NewSigningAuthority generates a fresh keypair for a single test.
func NewSigningAuthority(t *testing.T) *SigningAuthority {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	a := &SigningAuthority{priv: priv, pub: pub}
	if _, err := rand.Read(a.keyID[:]); err != nil {
		t.Fatalf("generate key id: %v", err)
	}
	return a
}

// MinisignPublicKey returns the base64 minisign key blob for this
// authority ("Ed" + key id + raw public key).
func (a *SigningAuthority) MinisignPublicKey() string {
	blob := make([]byte, 0, 42)
	blob = append(blob, 'E', 'd')
	blob = append(blob, a.keyID[:]...)
	blob = append(blob, a.pub...)
	return base64.StdEncoding.EncodeToString(blob)
}

// RawPublicKey returns the base64 of the bare 32-byte public key.
func (a *SigningAuthority) RawPublicKey() string {
	return base64.StdEncoding.EncodeToString(a.pub)
}

// SignMinisign produces a complete minisign signature document over
// message: untrusted comment, signature blob, trusted comment, and the
// global signature covering both.
func (a *SigningAuthority) SignMinisign(message []byte) string {
	sig := ed25519.Sign(a.priv, message)

	blob := make([]byte, 0, 74)
	blob = append(blob, 'E', 'd')
	blob = append(blob, a.keyID[:]...)
	blob = append(blob, sig...)

	trusted := "timestamp:1700000000"
	global := ed25519.Sign(a.priv, append(append([]byte{}, sig...), []byte(trusted)...))

	return fmt.Sprintf("untrusted comment: signature from test authority\n%s\ntrusted comment: %s\n%s\n",
		base64.StdEncoding.EncodeToString(blob),
		trusted,
		base64.StdEncoding.EncodeToString(global))
}

// SignRaw produces the base64 of a bare 64-byte detached signature
// over message, the libsodium-style encoding.
func (a *SigningAuthority) SignRaw(message []byte) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(a.priv, message))
}
