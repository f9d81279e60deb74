// Package db wires the storage backend: it opens the configured database,
// applies migrations where applicable, and constructs the link repository.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/secretlink/secretlink/internal/server/migrations"
	"github.com/secretlink/secretlink/internal/server/repositories/links"
)

// Manager owns the database handle and the repositories built on it.
type Manager struct {
	db    *sql.DB
	links links.Repository
}

// NewManager opens the storage backend selected by the DSN: a
// "postgres://" DSN yields the pgx-backed ledger with goose migrations
// applied; anything else is treated as a SQLite path.
func NewManager(ctx context.Context, dsn string) (*Manager, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return newPostgresManager(ctx, dsn)
	}
	return newSqliteManager(dsn)
}

func newPostgresManager(ctx context.Context, dsn string) (*Manager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration dialect error: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &Manager{db: db, links: links.NewPostgresRepository(db)}, nil
}

func newSqliteManager(path string) (*Manager, error) {
	repo, err := links.NewSqliteRepository(path)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return &Manager{db: repo.DB(), links: repo}, nil
}

// Links returns the link ledger repository.
func (m *Manager) Links() links.Repository {
	return m.links
}

// Close releases the underlying database resources.
func (m *Manager) Close() error {
	return m.db.Close()
}
