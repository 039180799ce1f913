// Package storage implements persistence for the expertise miner: user,
// skill, and evidence records plus the score aggregation and ranked-expert
// query that back the Expert API.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store wraps a pooled Postgres connection and exposes the aggregate
// operations the ingestor, scheduler, and expert API need.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres using cfg, applies the pool settings, and runs
// pending migrations before returning. The returned Store owns the pool and
// must be closed by the caller.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sql.Open("pgx", cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewStoreFromDB wraps an already-open *sql.DB without running migrations,
// used by integration tests against a testcontainers-managed instance.
func NewStoreFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying pool for callers that need raw access (health
// checks, ad-hoc admin queries).
func (s *Store) DB() *sql.DB {
	return s.db
}
