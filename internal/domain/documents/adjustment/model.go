// Package adjustment provides the Adjustment transaction (stock count
// corrections, write-offs, found goods).
package adjustment

import (
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/transaction"
)

// Line is one correction. Quantity is positive; Direction gives the sign.
type Line struct {
	VariantID id.ID                 `json:"variantId"`
	UnitID    id.ID                 `json:"unitId"`
	Quantity  types.Quantity        `json:"quantity"`
	Direction transaction.Direction `json:"direction"`
	Reason    string                `json:"reason,omitempty"`
}

// CreateRequest describes an adjustment at one location.
type CreateRequest struct {
	Status     entity.Status `json:"status"`
	Date       time.Time     `json:"date"`
	LocationID id.ID         `json:"locationId"`
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
			Direction: l.Direction,
			Reason:    l.Reason,
		})
	}
	return transaction.CreateRequest{
		Kind:       Kind,
		Status:     r.Status,
		Date:       r.Date,
		LocationID: r.LocationID,
		Comment:    r.Comment,
		Lines:      lines,
	}
}
