package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalogs/unit"
	"stockledger/internal/infrastructure/storage/postgres"
)

const unitTable = "units"

// UnitRepo implements unit.Repository.
type UnitRepo struct {
	*BaseCatalogRepo[unit.Unit]
}

var _ unit.Repository = (*UnitRepo)(nil)

// NewUnitRepo creates a new unit repository.
func NewUnitRepo(txManager *postgres.TxManager) *UnitRepo {
	return &UnitRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[unit.Unit](txManager, unitTable, "unit"),
	}
}

func (r *UnitRepo) GetUnit(ctx context.Context, unitID id.ID) (*unit.Unit, error) {
	return r.getByID(ctx, unitID)
}

func (r *UnitRepo) Create(ctx context.Context, u *unit.Unit) error {
	return r.insert(ctx, u, u.ID)
}

// ListByBusiness returns the units of a business, base units first.
func (r *UnitRepo) ListByBusiness(ctx context.Context, businessID id.ID) ([]*unit.Unit, error) {
	return r.listWhere(ctx, squirrel.Eq{"business_id": businessID}, "base_unit_id NULLS FIRST, name")
}
