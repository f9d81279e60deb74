// Package links declares and implements the consumption ledger: the
// server-side record of how many redemptions remain for each issued secret
// link. The ledger is the sole authority for redemption; the token's own
// claims are advisory copies.
package links

import (
	"context"
	"time"
)

// Repository is the storage contract for the link ledger.
//
// Each operation must be atomic under concurrent access from multiple
// processes; mutual exclusion comes from the storage engine's transactional
// guarantees, never from in-process locks, so the service can be replicated.
type Repository interface {
	// CreateSingleUse inserts a single-use row for jti. The row's existence
	// is the one remaining use. Duplicate jti values are a caller error and
	// surface as a constraint violation.
	CreateSingleUse(ctx context.Context, jti string, expiresAt time.Time) error

	// CreateMultiUse inserts a multi-use row allowing clicksLeft redemptions.
	CreateMultiUse(ctx context.Context, jti string, clicksLeft int, expiresAt time.Time) error

	// ConsumeSingleUse atomically deletes the unexpired single-use row for
	// jti and reports whether a row was removed. A check followed by a
	// separate delete would race; implementations use one conditional delete.
	ConsumeSingleUse(ctx context.Context, jti string) (bool, error)

	// ConsumeMultiUse atomically decrements the unexpired multi-use row for
	// jti and returns the remaining count, deleting the row in the same
	// transaction when the count reaches zero. A nil result means deny:
	// nonexistent, exhausted, or expired. Under K concurrent calls against
	// N remaining uses, exactly min(K, N) return non-nil, and the values
	// are {N-1 .. 0} each exactly once.
	ConsumeMultiUse(ctx context.Context, jti string) (*int, error)

	// DeleteExpired removes rows of both kinds whose expiry is at or before
	// now and returns how many were deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
