package links

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/secretlink/secretlink/internal/dbx"
)

// PostgresRepository implements the ledger over PostgreSQL. The conditional
// UPDATE in ConsumeMultiUse takes a row lock, so concurrent consumers of the
// same jti serialize inside the database.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository constructs a repository bound to the given database.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateSingleUse inserts a single-use row for jti.
func (r *PostgresRepository) CreateSingleUse(ctx context.Context, jti string, expiresAt time.Time) error {
	query := `
		INSERT INTO single_use_links (jti, expires_at)
		VALUES ($1, $2)
	`
	if _, err := r.db.ExecContext(ctx, query, jti, expiresAt.UTC()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// CreateMultiUse inserts a multi-use row allowing clicksLeft redemptions.
func (r *PostgresRepository) CreateMultiUse(ctx context.Context, jti string, clicksLeft int, expiresAt time.Time) error {
	query := `
		INSERT INTO multi_use_links (jti, clicks_left, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, jti, clicksLeft, expiresAt.UTC()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ConsumeSingleUse deletes the unexpired row for jti in a single conditional
// statement and reports whether a row went away.
func (r *PostgresRepository) ConsumeSingleUse(ctx context.Context, jti string) (bool, error) {
	query := `
		DELETE FROM single_use_links
		WHERE jti = $1 AND (expires_at IS NULL OR expires_at > $2)
	`
	res, err := r.db.ExecContext(ctx, query, jti, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// ConsumeMultiUse decrements the unexpired row for jti inside one
// transaction and returns the remaining count; the row is deleted in the
// same transaction when the count reaches zero.
func (r *PostgresRepository) ConsumeMultiUse(ctx context.Context, jti string) (*int, error) {
	var remaining *int
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `
			UPDATE multi_use_links
			SET clicks_left = clicks_left - 1
			WHERE jti = $1 AND clicks_left > 0
			  AND (expires_at IS NULL OR expires_at > $2)
			RETURNING clicks_left
		`
		var left int
		err := tx.QueryRowContext(ctx, query, jti, time.Now().UTC()).Scan(&left)
		if errors.Is(err, sql.ErrNoRows) {
			// nonexistent, exhausted, or expired: deny without touching anything
			return nil
		}
		if err != nil {
			return err
		}
		if left == 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM multi_use_links WHERE jti = $1`, jti); err != nil {
				return err
			}
		}
		remaining = &left
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return remaining, nil
}

// DeleteExpired sweeps both tables and returns the total rows removed.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		queries := []string{
			`DELETE FROM single_use_links WHERE expires_at IS NOT NULL AND expires_at <= $1`,
			`DELETE FROM multi_use_links WHERE expires_at IS NOT NULL AND expires_at <= $1`,
		}
		for _, query := range queries {
			res, err := tx.ExecContext(ctx, query, now.UTC())
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return total, nil
}
