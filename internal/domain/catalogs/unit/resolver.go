package unit

import (
	"context"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/id"
)

// Resolver memoizes catalog lookups for the lifetime of one request.
// Not safe for concurrent use.
type Resolver struct {
	catalog Catalog
	units   map[id.ID]*Unit
}

// NewResolver wraps catalog with a per-request cache.
func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog, units: make(map[id.ID]*Unit)}
}

// Get returns the unit with the given id.
func (r *Resolver) Get(ctx context.Context, unitID id.ID) (*Unit, error) {
	if u, ok := r.units[unitID]; ok {
		return u, nil
	}
	u, err := r.catalog.GetUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	r.units[unitID] = u
	return u, nil
}

// Convert expresses qty given in fromID in units of toID.
// Only direct relations convert, see Multiplier.
func (r *Resolver) Convert(ctx context.Context, qty decimal.Decimal, fromID, toID id.ID) (decimal.Decimal, error) {
	if fromID == toID {
		return qty, nil
	}
	from, err := r.Get(ctx, fromID)
	if err != nil {
		return decimal.Zero, err
	}
	to, err := r.Get(ctx, toID)
	if err != nil {
		return decimal.Zero, err
	}
	m, err := Multiplier(from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return qty.Mul(m), nil
}
