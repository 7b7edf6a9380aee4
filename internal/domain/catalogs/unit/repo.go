package unit

import (
	"context"

	"stockledger/internal/core/id"
)

// Catalog resolves units by id. Returns apperror NotFound for unknown ids.
type Catalog interface {
	GetUnit(ctx context.Context, id id.ID) (*Unit, error)
}

// Repository defines the interface for Unit persistence.
type Repository interface {
	Catalog

	// Create inserts a unit. Units are immutable afterwards.
	Create(ctx context.Context, u *Unit) error

	// ListByBusiness returns every unit of a business.
	ListByBusiness(ctx context.Context, businessID id.ID) ([]*Unit, error)
}
