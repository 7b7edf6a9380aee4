package transaction

import (
	"context"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
)

// Repository defines persistence of transaction headers and lines.
type Repository interface {
	// Create inserts the header. Lines are stored separately.
	Create(ctx context.Context, t *Transaction) error

	// Delete removes the header. Used as compensation only.
	Delete(ctx context.Context, txID id.ID) error

	// SaveLines inserts the lines of a transaction.
	SaveLines(ctx context.Context, txID id.ID, lines []Line) error

	// DeleteLines removes every line of a transaction. Used as compensation only.
	DeleteLines(ctx context.Context, txID id.ID) error

	// GetByID returns the header scoped to a business, NotFound otherwise.
	GetByID(ctx context.Context, businessID, txID id.ID) (*Transaction, error)

	// GetLines returns lines ordered by line number.
	GetLines(ctx context.Context, txID id.ID) ([]Line, error)

	// MarkFinal persists t's final status, FinalizedAt and Version, but only
	// if the stored row is still a draft. It reports false, without error,
	// when it is not.
	MarkFinal(ctx context.Context, t *Transaction) (bool, error)

	// List returns headers (without lines) matching filter.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transaction], error)
}

// ListFilter for filtering transactions.
type ListFilter struct {
	domain.ListFilter

	BusinessID id.ID
	Kind       *Kind
	Status     *entity.Status
	LocationID *id.ID
	DateFrom   *time.Time
	DateTo     *time.Time
}
