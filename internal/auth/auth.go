// Package auth gates edit mode behind a single shared password.
//
// Only the SHA-256 hex digest of the password is configured. There are no
// accounts and no lockout here; guessing is slowed by the per-IP limiter
// wrapped around the edit endpoint.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Verifier checks candidate passwords against a configured digest.
type Verifier struct {
	digest string
}

// NewVerifier returns a Verifier for the given hex SHA-256 digest.
// Hex case is ignored. An empty digest never verifies.
func NewVerifier(hexDigest string) *Verifier {
	return &Verifier{digest: strings.ToLower(strings.TrimSpace(hexDigest))}
}

// Configured reports whether a digest was supplied.
func (v *Verifier) Configured() bool { return v != nil && v.digest != "" }

// Verify reports whether sha256(candidate) matches the configured digest.
func (v *Verifier) Verify(candidate string) bool {
	if !v.Configured() {
		return false
	}
	return hashEqual(HashPassword(candidate), v.digest)
}

// HashPassword returns the lowercase hex SHA-256 digest of password, the
// value expected by -admin-password-hash.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// hashEqual compares two hex digests in constant time.
func hashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
