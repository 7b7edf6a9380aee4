package catalog_repo

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalogs/variant"
	"stockledger/internal/infrastructure/storage/postgres"
)

const variantTable = "variants"

// VariantRepo implements variant.Repository.
type VariantRepo struct {
	*BaseCatalogRepo[variant.Variant]
}

var _ variant.Repository = (*VariantRepo)(nil)

// NewVariantRepo creates a new variant repository.
func NewVariantRepo(txManager *postgres.TxManager) *VariantRepo {
	return &VariantRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[variant.Variant](txManager, variantTable, "variant"),
	}
}

func (r *VariantRepo) GetVariant(ctx context.Context, variantID id.ID) (*variant.Variant, error) {
	return r.getByID(ctx, variantID)
}

func (r *VariantRepo) Create(ctx context.Context, v *variant.Variant) error {
	return r.insert(ctx, v, v.ID)
}
