package token

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Claims is the payload carried inside a secret link token. Max and
// ExpiresAt are optional: a nil or 1 Max means single-use, and a nil
// ExpiresAt means the token itself never expires (the ledger row still gets
// the server's TTL ceiling).
type Claims struct {
	Sub       string
	Jti       ulid.ULID
	Max       *int
	ExpiresAt *time.Time
	Ver       int
}

// NewClaims builds claims for a fresh link with a newly generated ULID.
// ULIDs are time-ordered and collision-resistant, which keeps the ledger's
// primary key index append-mostly; only uniqueness matters for correctness.
func NewClaims(username string, max int, expiresAt *time.Time) (Claims, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), rand.Reader)
	if err != nil {
		return Claims{}, fmt.Errorf("generating link id: %w", err)
	}
	return Claims{
		Sub:       username,
		Jti:       id,
		Max:       &max,
		ExpiresAt: expiresAt,
		Ver:       1,
	}, nil
}

// SingleUse reports whether the claims denote a single-use link.
func (c Claims) SingleUse() bool {
	return c.Max == nil || *c.Max <= 1
}
