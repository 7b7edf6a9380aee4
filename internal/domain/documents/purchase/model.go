// Package purchase provides the Purchase transaction: goods received from a
// supplier into a location.
package purchase

import (
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/transaction"
)

// Line is one received item.
type Line struct {
	VariantID id.ID          `json:"variantId"`
	UnitID    id.ID          `json:"unitId"`
	Quantity  types.Quantity `json:"quantity"`
	UnitPrice types.Money    `json:"unitPrice"`
}

// CreateRequest describes a purchase.
type CreateRequest struct {
	Status     entity.Status `json:"status"`
	Date       time.Time     `json:"date"`
	LocationID id.ID         `json:"locationId"`
	SupplierID *id.ID        `json:"supplierId,omitempty"`
	Comment    string        `json:"comment,omitempty"`
	Lines      []Line        `json:"lines"`
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
		CounterpartyID: r.SupplierID,
		Comment:        r.Comment,
		Lines:          lines,
	}
}
