package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain"
	"stockledger/internal/domain/catalogs/unit"
	"stockledger/internal/domain/catalogs/variant"
	"stockledger/internal/domain/documents/adjustment"
	"stockledger/internal/domain/documents/transfer"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/domain/transaction"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

func runMigrate(ctx context.Context, a *app, _ args) error {
	if a.pool == nil {
		return fmt.Errorf("migrate needs STORAGE=postgres")
	}
	if err := postgres.Migrate(ctx, a.pool); err != nil {
		return err
	}
	fmt.Println("Schema is up to date")
	return nil
}

// scoped puts the --business scope into ctx.
func scoped(ctx context.Context, a args) (context.Context, error) {
	if err := a.require("business"); err != nil {
		return nil, err
	}
	businessID, err := a.id("business")
	if err != nil {
		return nil, err
	}
	return appctx.WithScope(ctx, appctx.Scope{
		BusinessID: businessID,
		UserID:     os.Getenv("USER"),
	}), nil
}

func runAddUnit(ctx context.Context, a *app, in args) error {
	ctx, err := scoped(ctx, in)
	if err != nil {
		return err
	}
	if err := in.require("name", "symbol"); err != nil {
		return err
	}

	u := unit.NewBaseUnit(appctx.BusinessID(ctx), in["name"], in["symbol"])
	if in["base"] != "" {
		baseID, err := in.id("base")
		if err != nil {
			return err
		}
		multiplier, err := in.quantity("multiplier")
		if err != nil {
			return err
		}
		u.BaseUnitID = &baseID
		u.BaseUnitMultiplier = multiplier
	}

	if err := a.units.Create(ctx, u); err != nil {
		return err
	}
	return printJSON(u)
}

func runAddVariant(ctx context.Context, a *app, in args) error {
	ctx, err := scoped(ctx, in)
	if err != nil {
		return err
	}
	if err := in.require("name", "base-unit"); err != nil {
		return err
	}
	baseUnitID, err := in.id("base-unit")
	if err != nil {
		return err
	}
	productID := id.New()
	if in["product"] != "" {
		if productID, err = in.id("product"); err != nil {
			return err
		}
	}

	v := variant.NewVariant(appctx.BusinessID(ctx), productID, baseUnitID, in["name"])
	v.SKU = in["sku"]
	if err := a.variants.Create(ctx, v); err != nil {
		return err
	}
	return printJSON(v)
}

func runBalance(ctx context.Context, a *app, in args) error {
	ctx, err := scoped(ctx, in)
	if err != nil {
		return err
	}
	variantID, err := in.optionalID("variant")
	if err != nil {
		return err
	}
	locationID, err := in.optionalID("location")
	if err != nil {
		return err
	}

	var balances []entity.StockBalance
	err = a.readOnly(ctx, func(ctx context.Context) error {
		balances, err = a.stock.ListBalances(ctx, stock.BalanceFilter{
			VariantID:   variantID,
			LocationID:  locationID,
			ExcludeZero: !in.flag("all"),
		})
		return err
	})
	if err != nil {
		return err
	}

	if len(balances) == 0 && variantID != nil && locationID != nil {
		fmt.Printf("%s @ %s: 0\n", variantID, locationID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VARIANT\tLOCATION\tQUANTITY\tUPDATED")
	for _, b := range balances {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.VariantID, b.LocationID, b.Quantity, b.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

// unitFor returns --unit or the variant's base unit.
func unitFor(ctx context.Context, a *app, in args, variantID id.ID) (id.ID, error) {
	if in["unit"] != "" {
		return in.id("unit")
	}
	v, err := a.catalog.GetVariant(ctx, variantID)
	if err != nil {
		return id.Nil(), err
	}
	return v.BaseUnitID, nil
}

func statusOf(in args) entity.Status {
	if in.flag("draft") {
		return entity.StatusDraft
	}
	return entity.StatusFinal
}

func runAdjust(ctx context.Context, a *app, in args) error {
	ctx, err := scoped(ctx, in)
	if err != nil {
		return err
	}
	if err := in.require("variant", "location", "qty"); err != nil {
		return err
	}
	variantID, err := in.id("variant")
	if err != nil {
		return err
	}
	locationID, err := in.id("location")
	if err != nil {
		return err
	}
	qty, err := in.quantity("qty")
	if err != nil {
		return err
	}
	unitID, err := unitFor(ctx, a, in, variantID)
	if err != nil {
		return err
	}

	direction := transaction.DirectionIncrease
	if qty.IsNegative() {
		direction = transaction.DirectionDecrease
	}

	res, err := a.adjustments.Create(ctx, adjustment.CreateRequest{
		Status:     statusOf(in),
		LocationID: locationID,
		Comment:    in["comment"],
		Lines: []adjustment.Line{{
			VariantID: variantID,
			UnitID:    unitID,
			Quantity:  qty.Abs(),
			Direction: direction,
			Reason:    in["reason"],
		}},
	})
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runTransfer(ctx context.Context, a *app, in args) error {
	ctx, err := scoped(ctx, in)
	if err != nil {
		return err
	}
	if err := in.require("variant", "from", "to", "qty"); err != nil {
		return err
	}
	variantID, err := in.id("variant")
	if err != nil {
		return err
	}
	fromID, err := in.id("from")
	if err != nil {
		return err
	}
	toID, err := in.id("to")
	if err != nil {
		return err
	}
	qty, err := in.quantity("qty")
	if err != nil {
		return err
	}
	unitID, err := unitFor(ctx, a, in, variantID)
	if err != nil {
		return err
	}

	res, err := a.transfers.Create(ctx, transfer.CreateRequest{
		Status:         statusOf(in),
		FromLocationID: fromID,
		ToLocationID:   &toID,
		Comment:        in["comment"],
		Lines: []transfer.Line{{
			VariantID: variantID,
			UnitID:    unitID,
			Quantity:  qty,
		}},
	})
	if err != nil {
		return err
	}
	return printJSON(res)
}

func kindOption(in args) ([]transaction.Option, error) {
	if in["kind"] == "" {
		return nil, nil
	}
	k := transaction.Kind(in["kind"])
	if !k.Valid() {
		return nil, fmt.Errorf("--kind: unknown kind %q", in["kind"])
	}
	return []transaction.Option{transaction.ExpectKind(k)}, nil
}

func runComplete(ctx context.Context, a *app, in args) error {
	ctx, err := scoped(ctx, in)
	if err != nil {
		return err
	}
	if err := in.require("id"); err != nil {
		return err
	}
	txID, err := in.id("id")
	if err != nil {
		return err
	}
	opts, err := kindOption(in)
	if err != nil {
		return err
	}

	res, err := a.controller.Complete(ctx, txID, opts...)
	if err != nil {
		return err
	}
	logger.Info(ctx, "transaction completed", "number", res.Transaction.Number)
	return printJSON(res)
}

func runGet(ctx context.Context, a *app, in args) error {
	ctx, err := scoped(ctx, in)
	if err != nil {
		return err
	}
	if err := in.require("id"); err != nil {
		return err
	}
	txID, err := in.id("id")
	if err != nil {
		return err
	}
	opts, err := kindOption(in)
	if err != nil {
		return err
	}

	var t *transaction.Transaction
	err = a.readOnly(ctx, func(ctx context.Context) error {
		t, err = a.controller.Get(ctx, txID, opts...)
		return err
	})
	if err != nil {
		return err
	}
	return printJSON(t)
}

func runList(ctx context.Context, a *app, in args) error {
	ctx, err := scoped(ctx, in)
	if err != nil {
		return err
	}

	filter := transaction.ListFilter{ListFilter: domain.DefaultListFilter()}
	if in["kind"] != "" {
		k := transaction.Kind(in["kind"])
		if !k.Valid() {
			return fmt.Errorf("--kind: unknown kind %q", in["kind"])
		}
		filter.Kind = &k
	}
	if in["status"] != "" {
		s := entity.Status(in["status"])
		if !s.Valid() {
			return fmt.Errorf("--status: want draft or final")
		}
		filter.Status = &s
	}
	if filter.LocationID, err = in.optionalID("location"); err != nil {
		return err
	}
	if from, err := in.date("from"); err != nil {
		return err
	} else if !from.IsZero() {
		filter.DateFrom = &from
	}
	if to, err := in.date("to"); err != nil {
		return err
	} else if !to.IsZero() {
		end := to.AddDate(0, 0, 1)
		filter.DateTo = &end
	}
	if filter.Limit, err = in.int("limit", filter.Limit); err != nil {
		return err
	}
	if filter.Offset, err = in.int("offset", 0); err != nil {
		return err
	}
	if in["order"] != "" {
		filter.OrderBy = in["order"]
	}

	var res domain.ListResult[*transaction.Transaction]
	err = a.readOnly(ctx, func(ctx context.Context) error {
		res, err = a.controller.List(ctx, filter)
		return err
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tKIND\tSTATUS\tDATE\tQUANTITY\tAMOUNT\tID")
	for _, t := range res.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Number, t.Kind, t.Status, t.Date.Format(time.DateOnly),
			t.TotalQuantity, t.TotalAmount.StringFixed(2), t.ID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d of %d\n", len(res.Items), res.TotalCount)
	return nil
}

func runHistory(ctx context.Context, a *app, in args) error {
	ctx, err := scoped(ctx, in)
	if err != nil {
		return err
	}
	if err := in.require("variant"); err != nil {
		return err
	}
	variantID, err := in.id("variant")
	if err != nil {
		return err
	}

	filter := stock.MovementFilter{}
	if filter.LocationID, err = in.optionalID("location"); err != nil {
		return err
	}
	if filter.RecorderID, err = in.optionalID("transaction"); err != nil {
		return err
	}
	if filter.Limit, err = in.int("limit", 0); err != nil {
		return err
	}

	var movements []entity.StockMovement
	err = a.readOnly(ctx, func(ctx context.Context) error {
		movements, err = a.stock.History(ctx, variantID, filter)
		return err
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tLOCATION\tQUANTITY\tBALANCE\tREASON\tRECORDER")
	for _, m := range movements {
		recorder := "-"
		if m.RecorderID != nil {
			recorder = m.RecorderID.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.CreatedAt.Format("2006-01-02 15:04:05"), m.RecordType, m.LocationID,
			m.Quantity, m.BalanceAfter, m.Reason, recorder)
	}
	return w.Flush()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// quantityString formats q the way balances are stored.
func quantityString(q types.Quantity) string {
	return types.RoundQuantity(q).String()
}
