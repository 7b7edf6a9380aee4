// Package stock provides the stock ledger: per (variant, location) balances
// in base units that never go negative.
package stock

import (
	"context"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Repository defines storage operations for the stock register.
//
// Credit and Debit must each be atomic: the balance change and the movement
// row are written together, and Debit never takes a balance below zero even
// when called concurrently for the same key.
type Repository interface {
	// GetBalance returns the balance row; found is false when none exists.
	GetBalance(ctx context.Context, variantID, locationID id.ID) (balance entity.StockBalance, found bool, err error)

	// Credit adds m.Quantity, creating the row lazily, records m and
	// returns the new quantity.
	Credit(ctx context.Context, m *entity.StockMovement) (types.Quantity, error)

	// Debit subtracts m.Quantity only if the current quantity covers it.
	// A shortfall is not an error: the result reports Applied=false and the
	// untouched current quantity.
	Debit(ctx context.Context, m *entity.StockMovement) (DebitResult, error)

	// ListBalances returns balances matching filter.
	ListBalances(ctx context.Context, filter BalanceFilter) ([]entity.StockBalance, error)

	// GetMovementHistory returns movements for a variant, newest first.
	GetMovementHistory(ctx context.Context, variantID id.ID, filter MovementFilter) ([]entity.StockMovement, error)
}

// DebitResult is the outcome of a conditional debit.
type DebitResult struct {
	Applied bool
	// Exists is false when no balance row was found
	Exists bool
	// Balance is the quantity after the debit, or the current one if not applied
	Balance types.Quantity
}

// BalanceFilter for filtering balance queries.
type BalanceFilter struct {
	VariantID   *id.ID
	LocationID  *id.ID
	ExcludeZero bool
}

// MovementFilter for filtering movement history.
type MovementFilter struct {
	LocationID *id.ID
	RecorderID *id.ID
	RecordType *entity.RecordType
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

// Requirement is a quantity that must be available at a location.
type Requirement struct {
	VariantID  id.ID
	LocationID id.ID
	Quantity   types.Quantity

	// RequireRecord reports a missing balance row as NoStockRecord, as a
	// decreasing adjustment does.
	RequireRecord bool
}

// TransferResult holds both balances after a transfer.
type TransferResult struct {
	Source      types.Quantity `json:"source"`
	Destination types.Quantity `json:"destination"`
}
