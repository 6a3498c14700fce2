// Package db defines the minimal database surface the stores depend on,
// small enough for pgxmock to satisfy in tests.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Querier is the read-side slice of a pgx connection pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}
