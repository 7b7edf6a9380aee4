package variant

import (
	"context"
	"fmt"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/catalogs/unit"
	"stockledger/pkg/logger"
)

// Service registers variants.
type Service struct {
	repo  Repository
	units unit.Catalog
}

// NewService creates a new Variant service.
func NewService(repo Repository, units unit.Catalog) *Service {
	return &Service{repo: repo, units: units}
}

// Create stores v after checking that its unit exists, belongs to the same
// business and is a base unit.
func (s *Service) Create(ctx context.Context, v *Variant) error {
	if err := v.Validate(ctx); err != nil {
		return err
	}

	u, err := s.units.GetUnit(ctx, v.BaseUnitID)
	if err != nil {
		return fmt.Errorf("get base unit: %w", err)
	}
	if u.BusinessID != v.BusinessID {
		return apperror.NewNotFound("unit", v.BaseUnitID)
	}
	if !u.IsBase() {
		return apperror.NewValidation("variant must be kept in a base unit").
			WithDetail("field", "baseUnitId").
			WithDetail("unit_id", u.ID)
	}

	if err := s.repo.Create(ctx, v); err != nil {
		return fmt.Errorf("create variant: %w", err)
	}

	logger.Info(ctx, "variant created", "id", v.ID, "sku", v.SKU)
	return nil
}
