package unit

import (
	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

var one = decimal.NewFromInt(1)

// Multiplier returns m such that qty in source * m = qty in target.
//
// Only direct relations convert: same unit, source is a sub-unit of target,
// or target is a sub-unit of source. Two sub-units of one base do not
// convert through it.
func Multiplier(source, target *Unit) (decimal.Decimal, error) {
	switch {
	case source.ID == target.ID:
		return one, nil
	case source.IsSubUnitOf(target):
		return source.BaseUnitMultiplier, nil
	case target.IsSubUnitOf(source):
		return one.DivRound(target.BaseUnitMultiplier, types.DivisionPrecision), nil
	default:
		return decimal.Zero, apperror.NewIncompatibleUnits(source.ID, target.ID)
	}
}

// ToBase converts qty expressed in u into base units.
//
// If u is base, or u has no base reference, qty is returned unchanged.
// A sub-unit of some other base fails with IncompatibleUnits.
// No rounding happens here.
func ToBase(qty decimal.Decimal, u, base *Unit) (decimal.Decimal, error) {
	if u.ID == base.ID || u.IsBase() {
		return qty, nil
	}
	if *u.BaseUnitID != base.ID {
		return decimal.Zero, apperror.NewIncompatibleUnits(u.ID, base.ID)
	}
	return qty.Mul(u.BaseUnitMultiplier), nil
}

// FromBase is the inverse of ToBase.
func FromBase(qty decimal.Decimal, base, u *Unit) (decimal.Decimal, error) {
	if u.ID == base.ID || u.IsBase() {
		return qty, nil
	}
	if *u.BaseUnitID != base.ID {
		return decimal.Zero, apperror.NewIncompatibleUnits(base.ID, u.ID)
	}
	return qty.DivRound(u.BaseUnitMultiplier, types.DivisionPrecision), nil
}

// ValidateForest checks that every sub-unit references a base unit present in
// units and that no sub-unit references another sub-unit.
func ValidateForest(units []*Unit) error {
	byID := make(map[id.ID]*Unit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}

	for _, u := range units {
		if u.IsBase() {
			continue
		}
		base, ok := byID[*u.BaseUnitID]
		if !ok {
			return apperror.NewNotFound("unit", *u.BaseUnitID).
				WithDetail("referenced_by", u.ID)
		}
		if !base.IsBase() {
			return apperror.NewIncompatibleUnits(u.ID, base.ID).
				WithDetail("reason", "base unit is itself a sub-unit")
		}
		if !u.BaseUnitMultiplier.IsPositive() {
			return apperror.NewValidation("base unit multiplier must be positive").
				WithDetail("unit_id", u.ID)
		}
	}
	return nil
}
