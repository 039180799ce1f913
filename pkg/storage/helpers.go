package storage

import (
	"context"
	"database/sql"
)

// querier abstracts over *sql.DB and *sql.Tx for helpers that run inside or
// outside a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var errNoRows = sql.ErrNoRows
