// Package transaction implements the draft -> final lifecycle shared by sales,
// purchases, adjustments and transfers. Only finalization touches stock.
package transaction

import (
	"context"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Kind is the transaction type.
type Kind string

const (
	KindSale       Kind = "sale"
	KindPurchase   Kind = "purchase"
	KindAdjustment Kind = "adjustment"
	KindTransfer   Kind = "transfer"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSale, KindPurchase, KindAdjustment, KindTransfer:
		return true
	}
	return false
}

// Prefix is the reference-number prefix of the kind.
func (k Kind) Prefix() string {
	switch k {
	case KindSale:
		return "SAL"
	case KindPurchase:
		return "PUR"
	case KindAdjustment:
		return "ADJ"
	case KindTransfer:
		return "TRF"
	}
	return "TXN"
}

// Direction of an adjustment line.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// Transaction is the header of a stock-affecting business transaction.
type Transaction struct {
	entity.Document

	Kind Kind `db:"kind" json:"kind"`

	// LocationID is where stock moves; the source for transfers
	LocationID id.ID `db:"location_id" json:"locationId"`

	// DestinationLocationID is the default destination of transfer lines
	DestinationLocationID *id.ID `db:"destination_location_id" json:"destinationLocationId,omitempty"`

	// CounterpartyID is the customer of a sale or supplier of a purchase
	CounterpartyID *id.ID `db:"counterparty_id" json:"counterpartyId,omitempty"`

	// Totals (calculated from lines)
	TotalQuantity types.Quantity `db:"total_quantity" json:"totalQuantity"`
	TotalAmount   types.Money    `db:"total_amount" json:"totalAmount"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one item of a transaction.
type Line struct {
	ID            id.ID `db:"id" json:"id"`
	TransactionID id.ID `db:"transaction_id" json:"transactionId"`
	LineNo        int   `db:"line_no" json:"lineNo"`

	VariantID id.ID `db:"variant_id" json:"variantId"`
	ProductID id.ID `db:"product_id" json:"productId"`

	// Quantity as entered, in UnitID
	Quantity types.Quantity `db:"quantity" json:"quantity"`
	UnitID   id.ID          `db:"unit_id" json:"unitId"`

	// BaseQuantity is Quantity in the variant's base unit
	BaseQuantity types.Quantity `db:"base_quantity" json:"baseQuantity"`

	// Direction is set on adjustment lines only
	Direction Direction `db:"direction" json:"direction,omitempty"`

	// Pricing for sales and purchases
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
	Amount    types.Money `db:"amount" json:"amount"`

	// DestinationLocationID overrides the header destination on transfers
	DestinationLocationID *id.ID `db:"destination_location_id" json:"destinationLocationId,omitempty"`

	Reason string `db:"reason" json:"reason,omitempty"`
}

// Destination returns where a transfer line moves stock to.
func (t *Transaction) Destination(l *Line) id.ID {
	if l.DestinationLocationID != nil && !id.IsNil(*l.DestinationLocationID) {
		return *l.DestinationLocationID
	}
	if t.DestinationLocationID != nil {
		return *t.DestinationLocationID
	}
	return id.Nil()
}

// Validate implements entity.Validatable.
func (t *Transaction) Validate(ctx context.Context) error {
	if err := t.Document.Validate(ctx); err != nil {
		return err
	}

	if !t.Kind.Valid() {
		return apperror.NewValidation("unknown transaction kind").
			WithDetail("field", "kind").
			WithDetail("value", string(t.Kind))
	}

	if id.IsNil(t.LocationID) {
		return apperror.NewValidation("location is required").
			WithDetail("field", "locationId")
	}

	if len(t.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i := range t.Lines {
		if err := t.validateLine(&t.Lines[i]); err != nil {
			return err
		}
	}

	return nil
}

func (t *Transaction) validateLine(l *Line) error {
	lineErr := func(msg, field string) error {
		return apperror.NewValidation(msg).
			WithDetail("field", field).
			WithDetail("lineNo", l.LineNo)
	}

	if id.IsNil(l.VariantID) {
		return lineErr("variant is required", "variantId")
	}
	if id.IsNil(l.UnitID) {
		return lineErr("unit is required", "unitId")
	}
	if !l.Quantity.IsPositive() {
		return lineErr("quantity must be positive", "quantity")
	}

	switch t.Kind {
	case KindSale, KindPurchase:
		if l.UnitPrice.IsNegative() {
			return lineErr("unit price cannot be negative", "unitPrice")
		}
	case KindAdjustment:
		if l.Direction != DirectionIncrease && l.Direction != DirectionDecrease {
			return lineErr("direction must be increase or decrease", "direction")
		}
	case KindTransfer:
		dest := t.Destination(l)
		if id.IsNil(dest) {
			return lineErr("destination location is required", "destinationLocationId")
		}
		if dest == t.LocationID {
			return apperror.NewSameLocation(dest).WithDetail("lineNo", l.LineNo)
		}
	}
	return nil
}

// recalculateTotals sums base quantities and amounts over lines.
func (t *Transaction) recalculateTotals() {
	t.TotalQuantity = types.Zero()
	t.TotalAmount = types.Zero()
	for _, l := range t.Lines {
		t.TotalQuantity = t.TotalQuantity.Add(l.BaseQuantity)
		t.TotalAmount = t.TotalAmount.Add(l.Amount)
	}
}
