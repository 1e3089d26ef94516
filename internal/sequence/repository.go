package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Repository hands out monotonic counters, one per key, using a single
// upsert-returning statement so concurrent callers never observe the same
// value.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Next increments and returns the counter for key under the caller's
// transaction or pool.
func (r *Repository) Next(ctx context.Context, db querier, key string) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("sequence key is required")
	}

	const query = `
INSERT INTO sequences (key, last_value, updated_at)
VALUES ($1, 1, NOW())
ON CONFLICT (key) DO UPDATE
SET last_value = sequences.last_value + 1,
    updated_at = NOW()
RETURNING last_value
`

	var next int64
	if err := db.QueryRow(ctx, query, key).Scan(&next); err != nil {
		return 0, fmt.Errorf("increment sequence: %w", err)
	}
	return next, nil
}
