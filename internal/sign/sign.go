// Package sign verifies detached Ed25519 signatures over discovery
// manifests against pinned public keys.
//
// Two transport encodings of the same primitive are supported, routed
// by the shape of the pinned key:
//
//  1. Minisign documents: the signature resource is a full minisign
//     signature file and the pinned key is a 42-byte minisign key blob
//     (base64). Verification is delegated to go-minisign.
//  2. Raw detached signatures: the signature resource is the base64 of
//     a bare 64-byte Ed25519 signature and the pinned key is a 32-byte
//     Ed25519 public key (base64).
//
// Every decode or format failure collapses into a plain "not valid"
// result. Callers never see a separate error category for malformed
// signatures; a manifest either verifies or it does not.
//
// Verification is a pure function of its inputs: no I/O, no mutable
// state, safe to call concurrently.
package sign

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"

	minisign "github.com/jedisct1/go-minisign"
)

// PublicKey is a pinned verification key. It is parsed once at startup
// and read-only afterwards.
type PublicKey struct {
	raw      ed25519.PublicKey
	minisign *minisign.PublicKey
}

// ParsePublicKey parses a pinned public key from its textual form.
// Accepted forms:
//   - base64 of a 32-byte raw Ed25519 public key
//   - base64 of a 42-byte minisign key blob
//   - a full minisign public key file (comment line + base64 line)
func ParsePublicKey(text string) (PublicKey, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return PublicKey{}, fmt.Errorf("empty public key")
	}

	// Full minisign key file with its untrusted comment line
	if strings.Contains(text, "\n") {
		mk, err := minisign.DecodePublicKey(text)
		if err != nil {
			return PublicKey{}, fmt.Errorf("decode minisign public key file: %w", err)
		}
		return PublicKey{minisign: &mk}, nil
	}

	bin, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return PublicKey{}, fmt.Errorf("decode public key: %w", err)
	}

	switch len(bin) {
	case ed25519.PublicKeySize:
		return PublicKey{raw: ed25519.PublicKey(bin)}, nil
	case 42:
		mk, err := minisign.NewPublicKey(text)
		if err != nil {
			return PublicKey{}, fmt.Errorf("decode minisign public key: %w", err)
		}
		return PublicKey{minisign: &mk}, nil
	default:
		return PublicKey{}, fmt.Errorf("unsupported public key length: %d bytes", len(bin))
	}
}

// Verify reports whether signatureText is a valid detached signature
// over message under key. Decode failures, format failures, and
// cryptographic mismatches are indistinguishable to the caller: all
// return false.
func Verify(message []byte, signatureText string, key PublicKey) bool {
	return key.Verify(message, signatureText)
}

// Verify reports whether signatureText is a valid detached signature
// over message under this key.
func (k PublicKey) Verify(message []byte, signatureText string) bool {
	switch {
	case k.minisign != nil:
		sig, err := minisign.DecodeSignature(signatureText)
		if err != nil {
			return false
		}
		ok, err := k.minisign.Verify(message, sig)
		return err == nil && ok
	case k.raw != nil:
		sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signatureText))
		if err != nil || len(sig) != ed25519.SignatureSize {
			return false
		}
		return ed25519.Verify(k.raw, message, sig)
	default:
		// Zero-value key pins nothing and trusts nothing.
		return false
	}
}

// Keyring is an ordered set of pinned public keys. The authority may
// roll keys; a signature is accepted when any pinned key verifies it.
type Keyring []PublicKey

// ParseKeyring parses each textual key in order. At least one key is
// required.
func ParseKeyring(texts []string) (Keyring, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no public keys configured")
	}
	ring := make(Keyring, 0, len(texts))
	for i, text := range texts {
		key, err := ParsePublicKey(text)
		if err != nil {
			return nil, fmt.Errorf("public key %d: %w", i, err)
		}
		ring = append(ring, key)
	}
	return ring, nil
}

// Verify reports whether any key in the ring verifies signatureText
// over message. An empty ring verifies nothing.
func (r Keyring) Verify(message []byte, signatureText string) bool {
	for _, key := range r {
		if key.Verify(message, signatureText) {
			return true
		}
	}
	return false
}
