// Package token implements the secret-link capability token: the claims it
// carries, the HMAC-SHA256 signing primitive, and the three-segment wire
// codec that turns claims into a compact URL-safe string and back.
package token

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// RecommendedKeyLength is the minimum signing key length, in bytes, that we
// consider adequate for HMAC-SHA256.
const RecommendedKeyLength = 32

// Signer signs and verifies token messages with HMAC-SHA256.
type Signer struct {
	key []byte
}

// NewSigner builds a Signer from the configured secret key. An empty key is
// a configuration error; the caller is expected to fail startup on it.
func NewSigner(key string) (*Signer, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("token signing key is not configured")
	}
	return &Signer{key: []byte(key)}, nil
}

// Sign returns the HMAC-SHA256 signature of message.
func (s *Signer) Sign(message string) ([]byte, error) {
	return jwt.SigningMethodHS256.Sign(message, s.key)
}

// Verify reports whether sig is a valid signature of message. The underlying
// comparison is constant-time.
func (s *Signer) Verify(message string, sig []byte) bool {
	return jwt.SigningMethodHS256.Verify(message, sig, s.key) == nil
}
