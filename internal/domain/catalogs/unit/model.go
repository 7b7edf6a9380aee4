// Package unit provides the Unit catalog and conversion between units.
//
// A unit without a base reference is a base unit. Every other unit is a
// direct sub-unit of a base unit: 1 sub-unit = BaseUnitMultiplier base units.
// Units form a forest of depth at most one.
package unit

import (
	"context"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
)

// Unit represents a measurement unit.
type Unit struct {
	entity.Catalog

	// Symbol is the short symbol (e.g., "pcs", "box", "kg")
	Symbol string `db:"symbol" json:"symbol"`

	// BaseUnitID references the base unit; nil for base units
	BaseUnitID *id.ID `db:"base_unit_id" json:"baseUnitId,omitempty"`

	// BaseUnitMultiplier is how many base units one of this unit holds.
	// Meaningless (kept at 1) for base units.
	BaseUnitMultiplier decimal.Decimal `db:"base_unit_multiplier" json:"baseUnitMultiplier"`
}

// NewBaseUnit creates a base unit.
func NewBaseUnit(businessID id.ID, name, symbol string) *Unit {
	return &Unit{
		Catalog:            entity.NewCatalog(businessID, name),
		Symbol:             symbol,
		BaseUnitMultiplier: decimal.NewFromInt(1),
	}
}

// NewSubUnit creates a unit worth multiplier units of base.
func NewSubUnit(base *Unit, name, symbol string, multiplier decimal.Decimal) *Unit {
	baseID := base.ID
	return &Unit{
		Catalog:            entity.NewCatalog(base.BusinessID, name),
		Symbol:             symbol,
		BaseUnitID:         &baseID,
		BaseUnitMultiplier: multiplier,
	}
}

// IsBase reports whether u has no base reference.
func (u *Unit) IsBase() bool {
	return u.BaseUnitID == nil || id.IsNil(*u.BaseUnitID)
}

// IsSubUnitOf reports whether u is a direct sub-unit of base.
func (u *Unit) IsSubUnitOf(base *Unit) bool {
	return !u.IsBase() && *u.BaseUnitID == base.ID
}

// Validate implements entity.Validatable interface.
func (u *Unit) Validate(ctx context.Context) error {
	if err := u.Catalog.Validate(ctx); err != nil {
		return err
	}

	if u.Symbol == "" {
		return apperror.NewValidation("symbol is required").
			WithDetail("field", "symbol")
	}

	if u.IsBase() {
		return nil
	}

	if *u.BaseUnitID == u.ID {
		return apperror.NewValidation("unit cannot be its own base").
			WithDetail("field", "baseUnitId")
	}

	if !u.BaseUnitMultiplier.IsPositive() {
		return apperror.NewValidation("base unit multiplier must be positive").
			WithDetail("field", "baseUnitMultiplier").
			WithDetail("value", u.BaseUnitMultiplier.String())
	}

	return nil
}
