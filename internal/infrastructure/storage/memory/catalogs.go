package memory

import (
	"context"
	"sort"
	"sync"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalogs/unit"
	"stockledger/internal/domain/catalogs/variant"
)

// UnitRepo is an in-memory unit catalog.
type UnitRepo struct {
	mu    sync.RWMutex
	units map[id.ID]unit.Unit
}

var _ unit.Repository = (*UnitRepo)(nil)

func NewUnitRepo() *UnitRepo {
	return &UnitRepo{units: make(map[id.ID]unit.Unit)}
}

func (r *UnitRepo) GetUnit(_ context.Context, unitID id.ID) (*unit.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.units[unitID]
	if !ok {
		return nil, apperror.NewNotFound("unit", unitID)
	}
	return &u, nil
}

func (r *UnitRepo) Create(_ context.Context, u *unit.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.units[u.ID]; ok {
		return apperror.NewDuplicate("unit", "id", u.ID.String())
	}
	r.units[u.ID] = *u
	return nil
}

func (r *UnitRepo) ListByBusiness(_ context.Context, businessID id.ID) ([]*unit.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*unit.Unit
	for _, u := range r.units {
		if u.BusinessID == businessID {
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// VariantRepo is an in-memory variant catalog.
type VariantRepo struct {
	mu       sync.RWMutex
	variants map[id.ID]variant.Variant
}

var _ variant.Repository = (*VariantRepo)(nil)

func NewVariantRepo() *VariantRepo {
	return &VariantRepo{variants: make(map[id.ID]variant.Variant)}
}

func (r *VariantRepo) GetVariant(_ context.Context, variantID id.ID) (*variant.Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.variants[variantID]
	if !ok {
		return nil, apperror.NewNotFound("variant", variantID)
	}
	return &v, nil
}

func (r *VariantRepo) Create(_ context.Context, v *variant.Variant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.variants[v.ID]; ok {
		return apperror.NewDuplicate("variant", "id", v.ID.String())
	}
	r.variants[v.ID] = *v
	return nil
}
