package links

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// register sqlite driver
	_ "modernc.org/sqlite"

	"github.com/secretlink/secretlink/internal/dbx"
)

// SqliteRepository implements the ledger over an embedded SQLite database.
// Intended for development and single-node deployments; semantics match the
// PostgreSQL backend. SQLite allows one writer at a time, which is exactly
// the serialization the consume operations need.
type SqliteRepository struct {
	db *sql.DB
}

// NewSqliteRepository opens (or creates) a SQLite ledger at the given path
// and bootstraps the schema. Use "file:secretlink?mode=memory&cache=shared"
// for an in-memory ledger.
func NewSqliteRepository(path string) (*SqliteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// single connection: writes serialize without SQLITE_BUSY handling
	db.SetMaxOpenConns(1)

	r := &SqliteRepository{db: db}
	if err := r.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SqliteRepository) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS single_use_links (
	jti TEXT PRIMARY KEY,
	expires_at INTEGER
);
CREATE TABLE IF NOT EXISTS multi_use_links (
	jti TEXT PRIMARY KEY,
	clicks_left INTEGER NOT NULL CHECK (clicks_left >= 0),
	expires_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_single_use_links_expires_at ON single_use_links(expires_at);
CREATE INDEX IF NOT EXISTS idx_multi_use_links_expires_at ON multi_use_links(expires_at);
`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// DB exposes the underlying handle so the owner can close it.
func (r *SqliteRepository) DB() *sql.DB {
	return r.db
}

func (r *SqliteRepository) CreateSingleUse(ctx context.Context, jti string, expiresAt time.Time) error {
	query := `INSERT INTO single_use_links (jti, expires_at) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, jti, expiresAt.UTC().Unix()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SqliteRepository) CreateMultiUse(ctx context.Context, jti string, clicksLeft int, expiresAt time.Time) error {
	query := `INSERT INTO multi_use_links (jti, clicks_left, expires_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, jti, clicksLeft, expiresAt.UTC().Unix()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SqliteRepository) ConsumeSingleUse(ctx context.Context, jti string) (bool, error) {
	query := `
		DELETE FROM single_use_links
		WHERE jti = ? AND (expires_at IS NULL OR expires_at > ?)
	`
	res, err := r.db.ExecContext(ctx, query, jti, time.Now().UTC().Unix())
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *SqliteRepository) ConsumeMultiUse(ctx context.Context, jti string) (*int, error) {
	var remaining *int
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE multi_use_links
			SET clicks_left = clicks_left - 1
			WHERE jti = ? AND clicks_left > 0
			  AND (expires_at IS NULL OR expires_at > ?)
		`, jti, time.Now().UTC().Unix())
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			// nonexistent, exhausted, or expired: deny
			return nil
		}

		var left int
		err = tx.QueryRowContext(ctx, `SELECT clicks_left FROM multi_use_links WHERE jti = ?`, jti).Scan(&left)
		if errors.Is(err, sql.ErrNoRows) {
			return errors.New("multi-use row vanished mid-transaction")
		}
		if err != nil {
			return err
		}
		if left == 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM multi_use_links WHERE jti = ?`, jti); err != nil {
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

func (r *SqliteRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		queries := []string{
			`DELETE FROM single_use_links WHERE expires_at IS NOT NULL AND expires_at <= ?`,
			`DELETE FROM multi_use_links WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		}
		for _, query := range queries {
			res, err := tx.ExecContext(ctx, query, now.UTC().Unix())
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
