// Package sale provides the Sale transaction: goods leaving a location
// to a customer.
package sale

import (
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/transaction"
)

// Line is one sold item.
type Line struct {
	VariantID id.ID          `json:"variantId"`
	UnitID    id.ID          `json:"unitId"`
	Quantity  types.Quantity `json:"quantity"`
	UnitPrice types.Money    `json:"unitPrice"`
}

// CreateRequest describes a sale.
type CreateRequest struct {
	// Status is draft (default) or final
	Status entity.Status `json:"status"`
	Date   time.Time     `json:"date"`

	// LocationID is where stock is taken from
	LocationID id.ID  `json:"locationId"`
	CustomerID *id.ID `json:"customerId,omitempty"`
	Comment    string `json:"comment,omitempty"`

	Lines []Line `json:"lines"`
}

func (r CreateRequest) toTransaction() transaction.CreateRequest {
	lines := make([]transaction.LineInput, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, transaction.LineInput{
			VariantID: l.VariantID,
			UnitID:    l.UnitID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return transaction.CreateRequest{
		Kind:           Kind,
		Status:         r.Status,
		Date:           r.Date,
		LocationID:     r.LocationID,
		CounterpartyID: r.CustomerID,
		Comment:        r.Comment,
		Lines:          lines,
	}
}
