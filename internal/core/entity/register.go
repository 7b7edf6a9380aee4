// Package entity provides core domain entities.
package entity

import (
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// RecordType defines movement direction for the stock register.
type RecordType string

const (
	// RecordTypeReceipt increases balance
	RecordTypeReceipt RecordType = "receipt"
	// RecordTypeExpense decreases balance
	RecordTypeExpense RecordType = "expense"
)

// StockMovement is one applied balance change. Movements are immutable;
// compensations are recorded as opposite movements.
type StockMovement struct {
	ID id.ID `db:"id" json:"id"`

	// RecorderID is the transaction that caused the movement, nil for
	// direct ledger calls
	RecorderID *id.ID `db:"recorder_id" json:"recorderId,omitempty"`

	RecordType RecordType `db:"record_type" json:"recordType"`

	// Dimensions
	VariantID  id.ID `db:"variant_id" json:"variantId"`
	LocationID id.ID `db:"location_id" json:"locationId"`

	// Quantity in base units, always positive
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// Balance after the movement was applied
	BalanceAfter types.Quantity `db:"balance_after" json:"balanceAfter"`

	Reason    string    `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewStockMovement creates a new stock movement.
func NewStockMovement(
	recorderID *id.ID,
	recordType RecordType,
	variantID, locationID id.ID,
	quantity types.Quantity,
	reason string,
) StockMovement {
	return StockMovement{
		ID:         id.New(),
		RecorderID: recorderID,
		RecordType: recordType,
		VariantID:  variantID,
		LocationID: locationID,
		Quantity:   quantity,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}
}

// SignedQuantity returns quantity with sign based on record type.
// Receipt = positive, Expense = negative.
func (m *StockMovement) SignedQuantity() types.Quantity {
	if m.RecordType == RecordTypeExpense {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// StockBalance is the current quantity of a variant at a location.
type StockBalance struct {
	// Dimensions
	VariantID  id.ID `db:"variant_id" json:"variantId"`
	LocationID id.ID `db:"location_id" json:"locationId"`

	// Quantity in base units, never negative
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
