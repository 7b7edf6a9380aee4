package numerator

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierStore keeps counters in the sequences table. The querier is resolved
// per call so a counter bump joins the caller's transaction when there is one.
type QuerierStore struct {
	querier func(ctx context.Context) Querier
}

// NewQuerierStore creates a Store over a context-aware querier source.
func NewQuerierStore(querier func(ctx context.Context) Querier) *QuerierStore {
	return &QuerierStore{querier: querier}
}

// NewStaticStore creates a Store over a fixed querier.
func NewStaticStore(q Querier) *QuerierStore {
	return &QuerierStore{querier: func(context.Context) Querier { return q }}
}

// Increment implements Store with a single UPSERT ... RETURNING.
func (s *QuerierStore) Increment(ctx context.Context, key Key, delta int64) (int64, error) {
	var value int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sequences (business_id, prefix, period, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (business_id, prefix, period) DO UPDATE SET value = sequences.value + EXCLUDED.value
		RETURNING value
	`, key.BusinessID, key.Prefix, key.Period, delta).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", key, err)
	}
	return value, nil
}

// Set implements Store.
func (s *QuerierStore) Set(ctx context.Context, key Key, value int64) error {
	var result int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sequences (business_id, prefix, period, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (business_id, prefix, period) DO UPDATE SET value = EXCLUDED.value
		RETURNING value
	`, key.BusinessID, key.Prefix, key.Period, value).Scan(&result)
	if err != nil {
		return fmt.Errorf("set sequence %s: %w", key, err)
	}
	return nil
}

var _ Store = (*QuerierStore)(nil)
