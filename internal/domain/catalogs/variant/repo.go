package variant

import (
	"context"

	"stockledger/internal/core/id"
)

// Catalog resolves variants by id. Returns apperror NotFound for unknown ids.
type Catalog interface {
	GetVariant(ctx context.Context, id id.ID) (*Variant, error)
}

// Repository defines the interface for Variant persistence.
type Repository interface {
	Catalog

	Create(ctx context.Context, v *Variant) error
}
