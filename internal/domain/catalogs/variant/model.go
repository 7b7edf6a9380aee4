// Package variant provides the item-variant catalog: the sellable SKU whose
// stock the ledger tracks.
package variant

import (
	"context"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

// Variant is one stock-keeping variant of a product.
type Variant struct {
	entity.Catalog

	// ProductID is the owning product (record keeping only)
	ProductID id.ID `db:"product_id" json:"productId"`

	// SKU is the article code
	SKU string `db:"sku" json:"sku,omitempty"`

	// BaseUnitID is the unit balances of this variant are kept in
	BaseUnitID id.ID `db:"base_unit_id" json:"baseUnitId"`
}

// NewVariant creates a variant of productID kept in baseUnitID.
func NewVariant(businessID, productID, baseUnitID id.ID, name string) *Variant {
	return &Variant{
		Catalog:    entity.NewCatalog(businessID, name),
		ProductID:  productID,
		BaseUnitID: baseUnitID,
	}
}

// Validate implements entity.Validatable interface.
func (v *Variant) Validate(ctx context.Context) error {
	if err := v.Catalog.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(v.BaseUnitID) {
		return apperror.NewValidation("base unit is required").
			WithDetail("field", "baseUnitId")
	}
	return nil
}
