// Package tx provides transaction management abstractions.
// Domain services depend on Manager, the pgx implementation lives in
// infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Passthrough runs fn directly. Used by storage backends without
// transactions, where sagas alone provide rollback.
type Passthrough struct{}

// RunInTransaction implements Manager.
func (Passthrough) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ Manager = Passthrough{}

type atomicKey struct{}

// WithAtomic marks ctx as running inside a transaction whose rollback undoes
// every write made with it. Managers that provide that guarantee set it.
func WithAtomic(ctx context.Context) context.Context {
	return context.WithValue(ctx, atomicKey{}, true)
}

// IsAtomic reports whether a failure in ctx is rolled back by the enclosing
// transaction, making compensating writes unnecessary.
func IsAtomic(ctx context.Context) bool {
	v, _ := ctx.Value(atomicKey{}).(bool)
	return v
}
