package unit

import (
	"context"
	"fmt"

	"stockledger/internal/core/apperror"
	"stockledger/pkg/logger"
)

// Service registers units and enforces the depth-one forest on insert.
type Service struct {
	repo Repository
}

// NewService creates a new Unit service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates u against its base and stores it.
func (s *Service) Create(ctx context.Context, u *Unit) error {
	if err := u.Validate(ctx); err != nil {
		return err
	}

	if !u.IsBase() {
		base, err := s.repo.GetUnit(ctx, *u.BaseUnitID)
		if err != nil {
			return fmt.Errorf("get base unit: %w", err)
		}
		if base.BusinessID != u.BusinessID {
			return apperror.NewNotFound("unit", base.ID)
		}
		// The base's own base is not loaded, so check the depth here.
		if !base.IsBase() {
			return apperror.NewIncompatibleUnits(u.ID, base.ID).
				WithDetail("reason", "base unit is itself a sub-unit")
		}
		if err := ValidateForest([]*Unit{base, u}); err != nil {
			return err
		}
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return fmt.Errorf("create unit: %w", err)
	}

	logger.Info(ctx, "unit created", "id", u.ID, "symbol", u.Symbol)
	return nil
}
