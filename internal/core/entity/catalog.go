package entity

import (
	"context"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

// Catalog is the base type for reference records owned by a business
// (units, variants).
type Catalog struct {
	BaseEntity

	// BusinessID is the owning business
	BusinessID id.ID `db:"business_id" json:"businessId"`

	// Name is the display name
	Name string `db:"name" json:"name"`
}

// NewCatalog creates a new Catalog record.
func NewCatalog(businessID id.ID, name string) Catalog {
	return Catalog{
		BaseEntity: NewBaseEntity(),
		BusinessID: businessID,
		Name:       name,
	}
}

// Validate implements Validatable interface.
func (c *Catalog) Validate(ctx context.Context) error {
	if id.IsNil(c.BusinessID) {
		return apperror.NewValidation("business is required").
			WithDetail("field", "businessId")
	}
	if c.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}
