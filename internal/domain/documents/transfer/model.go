// Package transfer provides the Transfer transaction: stock moved between
// two locations of the same business.
package transfer

import (
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/transaction"
)

// Line is one moved item. DestinationLocationID overrides the header destination.
type Line struct {
	VariantID             id.ID          `json:"variantId"`
	UnitID                id.ID          `json:"unitId"`
	Quantity              types.Quantity `json:"quantity"`
	DestinationLocationID *id.ID         `json:"destinationLocationId,omitempty"`
}

// CreateRequest describes a transfer out of FromLocationID.
type CreateRequest struct {
	Status         entity.Status `json:"status"`
	Date           time.Time     `json:"date"`
	FromLocationID id.ID         `json:"fromLocationId"`
	ToLocationID   *id.ID        `json:"toLocationId,omitempty"`
	Comment        string        `json:"comment,omitempty"`
	Lines          []Line        `json:"lines"`
}

func (r CreateRequest) toTransaction() transaction.CreateRequest {
	lines := make([]transaction.LineInput, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, transaction.LineInput{
			VariantID:             l.VariantID,
			UnitID:                l.UnitID,
			Quantity:              l.Quantity,
			DestinationLocationID: l.DestinationLocationID,
		})
	}
	return transaction.CreateRequest{
		Kind:                  Kind,
		Status:                r.Status,
		Date:                  r.Date,
		LocationID:            r.FromLocationID,
		DestinationLocationID: r.ToLocationID,
		Comment:               r.Comment,
		Lines:                 lines,
	}
}
