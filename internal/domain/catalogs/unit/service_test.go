package unit_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalogs/unit"
	"stockledger/internal/infrastructure/storage/memory"
)

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewUnitRepo()
	svc := unit.NewService(repo)

	businessID := id.New()
	piece := unit.NewBaseUnit(businessID, "Piece", "pcs")
	require.NoError(t, svc.Create(ctx, piece))

	box := unit.NewSubUnit(piece, "Box", "box", decimal.NewFromInt(12))
	require.NoError(t, svc.Create(ctx, box))

	t.Run("sub-unit of a sub-unit", func(t *testing.T) {
		pallet := unit.NewSubUnit(box, "Pallet", "plt", decimal.NewFromInt(40))
		err := svc.Create(ctx, pallet)
		assert.Equal(t, apperror.CodeIncompatibleUnits, apperror.CodeOf(err))

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, box.ID, appErr.Details["target_unit"])

		_, err = repo.GetUnit(ctx, pallet.ID)
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("base of another business", func(t *testing.T) {
		foreign := unit.NewBaseUnit(id.New(), "Piece", "pcs")
		require.NoError(t, repo.Create(ctx, foreign))

		crate := unit.NewSubUnit(foreign, "Crate", "crt", decimal.NewFromInt(6))
		crate.BusinessID = businessID
		assert.True(t, apperror.IsNotFound(svc.Create(ctx, crate)))
	})

	t.Run("missing base", func(t *testing.T) {
		orphan := unit.NewSubUnit(unit.NewBaseUnit(businessID, "Ghost", "gh"), "Pack", "pk", decimal.NewFromInt(2))
		assert.True(t, apperror.IsNotFound(svc.Create(ctx, orphan)))
	})

	t.Run("non-positive multiplier", func(t *testing.T) {
		bad := unit.NewSubUnit(piece, "Half", "hf", decimal.Zero)
		err := svc.Create(ctx, bad)
		assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
	})

	units, err := repo.ListByBusiness(ctx, businessID)
	require.NoError(t, err)
	assert.Len(t, units, 2)
}
