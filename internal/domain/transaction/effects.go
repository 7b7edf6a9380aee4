package transaction

import (
	"context"
	"fmt"

	"stockledger/internal/core/id"
	"stockledger/internal/core/lock"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/registers/stock"
)

// Op is the ledger primitive an effect maps to.
type Op string

const (
	OpIncrease Op = "increase"
	OpDecrease Op = "decrease"
	OpAdjust   Op = "adjust"
	OpTransfer Op = "transfer"
)

// Effect is one base-unit stock mutation derived from a line.
type Effect struct {
	LineNo        int
	Op            Op
	VariantID     id.ID
	LocationID    id.ID
	DestinationID id.ID // transfers only

	// Quantity is positive except for decreasing adjustments
	Quantity types.Quantity
	Reason   string
}

// Effects derives the stock effects of t, one per line, in line order.
func (t *Transaction) Effects() []Effect {
	effects := make([]Effect, 0, len(t.Lines))
	for i := range t.Lines {
		l := &t.Lines[i]
		e := Effect{
			LineNo:     l.LineNo,
			VariantID:  l.VariantID,
			LocationID: t.LocationID,
			Quantity:   l.BaseQuantity,
			Reason:     l.Reason,
		}
		switch t.Kind {
		case KindSale:
			e.Op = OpDecrease
		case KindPurchase:
			e.Op = OpIncrease
		case KindAdjustment:
			e.Op = OpAdjust
			if l.Direction == DirectionDecrease {
				e.Quantity = e.Quantity.Neg()
			}
			if e.Reason == "" {
				e.Reason = fmt.Sprintf("adjustment %s", t.Number)
			}
		case KindTransfer:
			e.Op = OpTransfer
			e.DestinationID = t.Destination(l)
		}
		effects = append(effects, e)
	}
	return effects
}

// Requirements lists the stock each decreasing effect needs at its source.
func Requirements(effects []Effect) []stock.Requirement {
	var reqs []stock.Requirement
	for _, e := range effects {
		switch {
		case e.Op == OpDecrease, e.Op == OpTransfer,
			e.Op == OpAdjust && e.Quantity.IsNegative():
			reqs = append(reqs, stock.Requirement{
				VariantID:     e.VariantID,
				LocationID:    e.LocationID,
				Quantity:      e.Quantity.Abs(),
				RequireRecord: e.Op == OpAdjust,
			})
		}
	}
	return reqs
}

// BalanceKeys lists every balance the effects touch, destinations included.
func BalanceKeys(effects []Effect) []stock.BalanceKey {
	keys := make([]stock.BalanceKey, 0, len(effects))
	for _, e := range effects {
		keys = append(keys, stock.BalanceKey{VariantID: e.VariantID, LocationID: e.LocationID})
		if e.Op == OpTransfer {
			keys = append(keys, stock.BalanceKey{VariantID: e.VariantID, LocationID: e.DestinationID})
		}
	}
	return keys
}

// Ledger is the part of the stock ledger the controller drives.
type Ledger interface {
	// HoldBalances keeps the balance locks for keys until Unlock, across
	// every ledger call made with the returned context.
	HoldBalances(ctx context.Context, keys []stock.BalanceKey) (context.Context, lock.Unlock, error)

	Increase(ctx context.Context, variantID, locationID id.ID, qty types.Quantity, opts ...stock.MutationOption) (types.Quantity, error)
	Decrease(ctx context.Context, variantID, locationID id.ID, qty types.Quantity, opts ...stock.MutationOption) (types.Quantity, error)
	Adjust(ctx context.Context, variantID, locationID id.ID, signedQty types.Quantity, reason string, opts ...stock.MutationOption) (types.Quantity, error)
	Transfer(ctx context.Context, variantID, fromID, toID id.ID, qty types.Quantity, opts ...stock.MutationOption) (stock.TransferResult, error)
	CheckAvailability(ctx context.Context, reqs []stock.Requirement) error
}

var _ Ledger = (*stock.Service)(nil)

// AppliedLine reports the balances left by one applied effect.
type AppliedLine struct {
	LineNo       int            `json:"lineNo"`
	VariantID    id.ID          `json:"variantId"`
	LocationID   id.ID          `json:"locationId"`
	BaseQuantity types.Quantity `json:"baseQuantity"`
	Balance      types.Quantity `json:"balance"`

	DestinationLocationID *id.ID          `json:"destinationLocationId,omitempty"`
	DestinationBalance    *types.Quantity `json:"destinationBalance,omitempty"`
}

// apply performs e on the ledger.
func apply(ctx context.Context, l Ledger, txID id.ID, e Effect) (AppliedLine, error) {
	out := AppliedLine{
		LineNo:       e.LineNo,
		VariantID:    e.VariantID,
		LocationID:   e.LocationID,
		BaseQuantity: e.Quantity,
	}
	rec := stock.WithRecorder(txID)

	var err error
	switch e.Op {
	case OpIncrease:
		out.Balance, err = l.Increase(ctx, e.VariantID, e.LocationID, e.Quantity, rec, stock.WithReason(e.Reason))
	case OpDecrease:
		out.Balance, err = l.Decrease(ctx, e.VariantID, e.LocationID, e.Quantity, rec, stock.WithReason(e.Reason))
	case OpAdjust:
		out.Balance, err = l.Adjust(ctx, e.VariantID, e.LocationID, e.Quantity, e.Reason, rec)
	case OpTransfer:
		var res stock.TransferResult
		res, err = l.Transfer(ctx, e.VariantID, e.LocationID, e.DestinationID, e.Quantity, rec, stock.WithReason(e.Reason))
		dest, destBalance := e.DestinationID, res.Destination
		out.Balance = res.Source
		out.DestinationLocationID = &dest
		out.DestinationBalance = &destBalance
	default:
		err = fmt.Errorf("unknown stock effect %q", e.Op)
	}
	return out, err
}

// revert undoes an applied effect.
func revert(ctx context.Context, l Ledger, txID id.ID, e Effect) error {
	rec := stock.WithRecorder(txID)
	reason := stock.WithReason("compensation")

	var err error
	switch e.Op {
	case OpIncrease:
		_, err = l.Decrease(ctx, e.VariantID, e.LocationID, e.Quantity, rec, reason)
	case OpDecrease:
		_, err = l.Increase(ctx, e.VariantID, e.LocationID, e.Quantity, rec, reason)
	case OpAdjust:
		_, err = l.Adjust(ctx, e.VariantID, e.LocationID, e.Quantity.Neg(), "compensation", rec)
	case OpTransfer:
		_, err = l.Transfer(ctx, e.VariantID, e.DestinationID, e.LocationID, e.Quantity, rec, reason)
	}
	return err
}
