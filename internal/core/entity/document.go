package entity

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

// Status is the lifecycle state of a document.
// The only transition is draft -> final.
type Status string

const (
	StatusDraft Status = "draft"
	StatusFinal Status = "final"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusFinal
}

// Document is the base type for stock-affecting transactions.
type Document struct {
	BaseEntity

	// BusinessID is the owning business. All reads are scoped by it.
	BusinessID id.ID `db:"business_id" json:"businessId"`

	// Number is the reference number, unique per business, kind and month
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Status is draft or final
	Status Status `db:"status" json:"status"`

	// FinalizedAt is set once, when stock effects were applied
	FinalizedAt *time.Time `db:"finalized_at" json:"finalizedAt,omitempty"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new draft Document with generated ID.
func NewDocument(businessID id.ID) Document {
	return Document{
		BaseEntity: NewBaseEntity(),
		BusinessID: businessID,
		Date:       time.Now().UTC(),
		Status:     StatusDraft,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if id.IsNil(d.BusinessID) {
		return apperror.NewValidation("business is required").
			WithDetail("field", "businessId")
	}

	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}

	if !d.Status.Valid() {
		return apperror.NewValidation("status must be draft or final").
			WithDetail("field", "status").
			WithDetail("value", string(d.Status))
	}

	return nil
}

// IsFinal reports whether stock effects have been applied.
func (d *Document) IsFinal() bool {
	return d.Status == StatusFinal
}

// MarkFinal flips the status and stamps FinalizedAt.
func (d *Document) MarkFinal(at time.Time) {
	d.Status = StatusFinal
	d.FinalizedAt = &at
	d.Touch()
}
