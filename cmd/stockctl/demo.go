package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/unit"
	"stockledger/internal/domain/catalogs/variant"
	"stockledger/internal/domain/documents/purchase"
	"stockledger/internal/domain/documents/sale"
	"stockledger/internal/domain/documents/transfer"
)

// runDemo walks through the lifecycle on an empty memory store.
func runDemo(ctx context.Context, a *app, _ args) error {
	businessID := id.New()
	ctx = appctx.WithScope(ctx, appctx.Scope{BusinessID: businessID, UserID: "demo"})

	piece := unit.NewBaseUnit(businessID, "Piece", "pcs")
	box := unit.NewSubUnit(piece, "Box", "box", decimal.NewFromInt(12))
	for _, u := range []*unit.Unit{piece, box} {
		if err := a.units.Create(ctx, u); err != nil {
			return err
		}
	}
	mug := variant.NewVariant(businessID, id.New(), piece.ID, "Blue mug")
	if err := a.variants.Create(ctx, mug); err != nil {
		return err
	}

	store, warehouse := id.New(), id.New()
	show := func(step string) error {
		storeQty, err := a.stock.GetBalance(ctx, mug.ID, store)
		if err != nil {
			return err
		}
		whQty, err := a.stock.GetBalance(ctx, mug.ID, warehouse)
		if err != nil {
			return err
		}
		fmt.Printf("%-40s warehouse=%s store=%s\n", step, quantityString(whQty), quantityString(storeQty))
		return nil
	}

	bought, err := a.purchases.Create(ctx, purchase.CreateRequest{
		Status:     entity.StatusFinal,
		LocationID: warehouse,
		Lines: []purchase.Line{{
			VariantID: mug.ID,
			UnitID:    box.ID,
			Quantity:  types.NewQuantity(3),
			UnitPrice: decimal.RequireFromString("30.00"),
		}},
	})
	if err != nil {
		return err
	}
	if err := show(bought.Transaction.Number + " purchase 3 box"); err != nil {
		return err
	}

	moved, err := a.transfers.Create(ctx, transfer.CreateRequest{
		FromLocationID: warehouse,
		ToLocationID:   &store,
		Lines: []transfer.Line{{
			VariantID: mug.ID,
			UnitID:    piece.ID,
			Quantity:  types.NewQuantity(20),
		}},
	})
	if err != nil {
		return err
	}
	if err := show(moved.Transaction.Number + " draft transfer 20 pcs"); err != nil {
		return err
	}

	if _, err := a.transfers.Complete(ctx, moved.Transaction.ID); err != nil {
		return err
	}
	if err := show(moved.Transaction.Number + " completed"); err != nil {
		return err
	}

	_, err = a.transfers.Complete(ctx, moved.Transaction.ID)
	fmt.Printf("%-40s %s\n", "complete again", apperror.CodeOf(err))

	_, err = a.sales.Create(ctx, sale.CreateRequest{
		Status:     entity.StatusFinal,
		LocationID: store,
		Lines: []sale.Line{{
			VariantID: mug.ID,
			UnitID:    box.ID,
			Quantity:  types.NewQuantity(2),
			UnitPrice: decimal.RequireFromString("50.00"),
		}},
	})
	fmt.Printf("%-40s %s\n", "sell 2 box at store", apperror.CodeOf(err))

	sold, err := a.sales.Create(ctx, sale.CreateRequest{
		Status:     entity.StatusFinal,
		LocationID: store,
		Lines: []sale.Line{{
			VariantID: mug.ID,
			UnitID:    box.ID,
			Quantity:  types.NewQuantity(1),
			UnitPrice: decimal.RequireFromString("50.00"),
		}},
	})
	if err != nil {
		return err
	}
	return show(sold.Transaction.Number + " sale 1 box")
}
