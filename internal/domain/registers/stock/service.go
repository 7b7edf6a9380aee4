package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/lock"
	"stockledger/internal/core/saga"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/pkg/logger"
)

var tracer = otel.Tracer("stockledger/stock")

// Service is the stock ledger. All quantities are in the variant's base unit.
//
// Every mutation holds the per-key lock for its (variant, location) pair,
// unless the caller already holds it through HoldBalances, and relies on the
// repository's conditional update, so the balance can never go negative
// even with several instances sharing one database.
type Service struct {
	repo   Repository
	locker lock.Locker
}

// NewService creates a new stock ledger.
func NewService(repo Repository, locker lock.Locker) *Service {
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	return &Service{
		repo:   repo,
		locker: locker,
	}
}

// LockKey is the lock name of one balance.
func LockKey(variantID, locationID id.ID) string {
	return fmt.Sprintf("stock:%s:%s", variantID, locationID)
}

// BalanceKey names one (variant, location) balance.
type BalanceKey struct {
	VariantID  id.ID
	LocationID id.ID
}

// HoldBalances locks every balance in keys until the returned Unlock runs.
// Ledger calls made with the returned context reuse those locks, so a caller
// can keep them across several mutations and its database commit.
func (s *Service) HoldBalances(ctx context.Context, keys []BalanceKey) (context.Context, lock.Unlock, error) {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, LockKey(k.VariantID, k.LocationID))
	}
	return s.lock(ctx, names...)
}

// GetBalance returns the current quantity. A missing row reads as zero.
func (s *Service) GetBalance(ctx context.Context, variantID, locationID id.ID) (types.Quantity, error) {
	b, found, err := s.repo.GetBalance(ctx, variantID, locationID)
	if err != nil {
		return types.Zero(), apperror.Persistence("get balance", err)
	}
	if !found {
		return types.Zero(), nil
	}
	return b.Quantity, nil
}

// Increase adds qty and returns the new balance.
func (s *Service) Increase(ctx context.Context, variantID, locationID id.ID, qty types.Quantity, opts ...MutationOption) (types.Quantity, error) {
	ctx, span := s.startSpan(ctx, "stock.Increase", variantID, locationID, qty)
	defer span.End()

	qty, err := positive(qty)
	if err != nil {
		return types.Zero(), err
	}

	ctx, unlock, err := s.lock(ctx, LockKey(variantID, locationID))
	if err != nil {
		return types.Zero(), err
	}
	defer unlock()

	balance, err := s.credit(ctx, variantID, locationID, qty, applyOptions(opts))
	return balance, recordErr(span, err)
}

// Decrease subtracts qty and returns the new balance.
// Fails with InsufficientStock, leaving the balance untouched, when the
// balance does not cover qty.
func (s *Service) Decrease(ctx context.Context, variantID, locationID id.ID, qty types.Quantity, opts ...MutationOption) (types.Quantity, error) {
	ctx, span := s.startSpan(ctx, "stock.Decrease", variantID, locationID, qty)
	defer span.End()

	qty, err := positive(qty)
	if err != nil {
		return types.Zero(), err
	}

	ctx, unlock, err := s.lock(ctx, LockKey(variantID, locationID))
	if err != nil {
		return types.Zero(), err
	}
	defer unlock()

	balance, err := s.debit(ctx, variantID, locationID, qty, applyOptions(opts), false)
	return balance, recordErr(span, err)
}

// Adjust applies a signed correction. A negative adjustment needs an
// existing balance row (NoStockRecord) that covers it (InsufficientStock).
func (s *Service) Adjust(ctx context.Context, variantID, locationID id.ID, signedQty types.Quantity, reason string, opts ...MutationOption) (types.Quantity, error) {
	ctx, span := s.startSpan(ctx, "stock.Adjust", variantID, locationID, signedQty)
	defer span.End()

	rounded := types.RoundQuantity(signedQty)
	if rounded.IsZero() {
		return types.Zero(), apperror.NewInvalidQuantity(signedQty)
	}

	ctx, unlock, err := s.lock(ctx, LockKey(variantID, locationID))
	if err != nil {
		return types.Zero(), err
	}
	defer unlock()

	m := applyOptions(append(opts, WithReason(reason)))
	var balance types.Quantity
	if rounded.IsPositive() {
		balance, err = s.credit(ctx, variantID, locationID, rounded, m)
	} else {
		balance, err = s.debit(ctx, variantID, locationID, rounded.Neg(), m, true)
	}
	if err != nil {
		return types.Zero(), recordErr(span, err)
	}

	logger.Info(ctx, "stock adjusted",
		"variant_id", variantID,
		"location_id", locationID,
		"quantity", rounded,
		"balance", balance,
		"reason", reason,
	)
	return balance, nil
}

// Transfer moves qty from one location to another as decrease-then-increase.
//
// If the increase fails after the decrease succeeded, the source is
// re-credited and TransferIncomplete is returned either way; its
// "compensated" detail tells whether the source was restored. Inside an
// atomic transaction the increase error is returned as is and the rollback
// restores the source.
func (s *Service) Transfer(ctx context.Context, variantID, fromID, toID id.ID, qty types.Quantity, opts ...MutationOption) (TransferResult, error) {
	ctx, span := s.startSpan(ctx, "stock.Transfer", variantID, fromID, qty)
	defer span.End()
	span.SetAttributes(attribute.String("stock.destination_id", toID.String()))

	qty, err := positive(qty)
	if err != nil {
		return TransferResult{}, err
	}
	if fromID == toID {
		return TransferResult{}, apperror.NewSameLocation(fromID)
	}

	ctx, unlock, err := s.lock(ctx, LockKey(variantID, fromID), LockKey(variantID, toID))
	if err != nil {
		return TransferResult{}, err
	}
	defer unlock()

	m := applyOptions(opts)
	var result TransferResult

	sg := saga.New("stock transfer")
	err = sg.Run(ctx, saga.Step{
		Name: "decrease source",
		Do: func(ctx context.Context) error {
			b, err := s.debit(ctx, variantID, fromID, qty, m, false)
			result.Source = b
			return err
		},
		Undo: func(ctx context.Context) error {
			undo := m
			undo.reason = "transfer compensation"
			_, err := s.credit(ctx, variantID, fromID, qty, undo)
			return err
		},
	})
	if err != nil {
		// Nothing was applied.
		return TransferResult{}, recordErr(span, unwrapStep(err))
	}

	err = sg.Run(ctx, saga.Step{
		Name: "increase destination",
		Do: func(ctx context.Context) error {
			b, err := s.credit(ctx, variantID, toID, qty, m)
			result.Destination = b
			return err
		},
	})
	if err != nil && tx.IsAtomic(ctx) {
		// The enclosing rollback drops the source debit along with everything else.
		return TransferResult{}, recordErr(span, unwrapStep(err))
	}
	if err != nil {
		compensated := saga.IsClean(err)
		logger.Error(ctx, "stock transfer incomplete",
			"variant_id", variantID,
			"from_location_id", fromID,
			"to_location_id", toID,
			"quantity", qty,
			"compensated", compensated,
			"error", err,
		)
		incomplete := apperror.NewTransferIncomplete(unwrapStep(err)).
			WithDetail("variant_id", variantID).
			WithDetail("from_location_id", fromID).
			WithDetail("to_location_id", toID).
			WithDetail("quantity", qty.String()).
			WithDetail("compensated", compensated)
		return TransferResult{}, recordErr(span, incomplete)
	}

	logger.Info(ctx, "stock transferred",
		"variant_id", variantID,
		"from_location_id", fromID,
		"to_location_id", toID,
		"quantity", qty,
	)
	return result, nil
}

// CheckAvailability verifies that every requirement is covered by the current
// balances. Requirements on the same (variant, location) are summed first.
// It is a pre-check only; the debits themselves remain conditional.
func (s *Service) CheckAvailability(ctx context.Context, reqs []Requirement) error {
	type key struct{ variant, location id.ID }
	type need struct {
		qty           types.Quantity
		requireRecord bool
	}

	totals := make(map[key]*need, len(reqs))
	order := make([]key, 0, len(reqs))
	for _, r := range reqs {
		k := key{r.VariantID, r.LocationID}
		n, ok := totals[k]
		if !ok {
			n = &need{qty: types.Zero()}
			totals[k] = n
			order = append(order, k)
		}
		n.qty = n.qty.Add(r.Quantity)
		n.requireRecord = n.requireRecord || r.RequireRecord
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].variant != order[j].variant {
			return id.Less(order[i].variant, order[j].variant)
		}
		return id.Less(order[i].location, order[j].location)
	})

	for _, k := range order {
		n := totals[k]
		required := types.RoundQuantity(n.qty)

		b, found, err := s.repo.GetBalance(ctx, k.variant, k.location)
		if err != nil {
			return apperror.Persistence("get balance", err)
		}
		if !found && n.requireRecord {
			return apperror.NewNoStockRecord(k.variant, k.location)
		}
		available := types.Zero()
		if found {
			available = b.Quantity
		}

		if available.LessThan(required) {
			logger.Debug(ctx, "stock check failed",
				"variant_id", k.variant,
				"location_id", k.location,
				"required", required,
				"available", available,
			)
			return apperror.NewInsufficientStock(k.variant, k.location, required, available)
		}
	}
	return nil
}

// History returns the movement history of a variant.
func (s *Service) History(ctx context.Context, variantID id.ID, filter MovementFilter) ([]entity.StockMovement, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	movements, err := s.repo.GetMovementHistory(ctx, variantID, filter)
	if err != nil {
		return nil, apperror.Persistence("get movement history", err)
	}
	return movements, nil
}

// ListBalances returns balances matching filter.
func (s *Service) ListBalances(ctx context.Context, filter BalanceFilter) ([]entity.StockBalance, error) {
	balances, err := s.repo.ListBalances(ctx, filter)
	if err != nil {
		return nil, apperror.Persistence("list balances", err)
	}
	return balances, nil
}

// --- unlocked primitives, callers hold the key lock ---

func (s *Service) credit(ctx context.Context, variantID, locationID id.ID, qty types.Quantity, m mutation) (types.Quantity, error) {
	mv := entity.NewStockMovement(m.recorderID, entity.RecordTypeReceipt, variantID, locationID, qty, m.reason)
	balance, err := s.repo.Credit(ctx, &mv)
	if err != nil {
		return types.Zero(), apperror.Persistence("credit stock", err)
	}

	logger.Debug(ctx, "stock increased",
		"variant_id", variantID,
		"location_id", locationID,
		"quantity", qty,
		"balance", balance,
	)
	return balance, nil
}

func (s *Service) debit(ctx context.Context, variantID, locationID id.ID, qty types.Quantity, m mutation, requireRecord bool) (types.Quantity, error) {
	mv := entity.NewStockMovement(m.recorderID, entity.RecordTypeExpense, variantID, locationID, qty, m.reason)
	res, err := s.repo.Debit(ctx, &mv)
	if err != nil {
		return types.Zero(), apperror.Persistence("debit stock", err)
	}

	if !res.Applied {
		if requireRecord && !res.Exists {
			return types.Zero(), apperror.NewNoStockRecord(variantID, locationID)
		}
		logger.Debug(ctx, "insufficient stock",
			"variant_id", variantID,
			"location_id", locationID,
			"requested", qty,
			"available", res.Balance,
		)
		return types.Zero(), apperror.NewInsufficientStock(variantID, locationID, qty, res.Balance)
	}

	logger.Debug(ctx, "stock decreased",
		"variant_id", variantID,
		"location_id", locationID,
		"quantity", qty,
		"balance", res.Balance,
	)
	return res.Balance, nil
}

// lock takes the balance locks ctx does not already hold.
func (s *Service) lock(ctx context.Context, keys ...string) (context.Context, lock.Unlock, error) {
	ctx, unlock, err := lock.Hold(ctx, s.locker, keys...)
	if err != nil {
		return ctx, nil, lockErr(err)
	}
	return ctx, unlock, nil
}

func (s *Service) startSpan(ctx context.Context, name string, variantID, locationID id.ID, qty types.Quantity) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("stock.variant_id", variantID.String()),
		attribute.String("stock.location_id", locationID.String()),
		attribute.String("stock.quantity", qty.String()),
	))
}

// positive rounds qty to the stored scale and rejects anything not above zero.
func positive(qty types.Quantity) (types.Quantity, error) {
	rounded := types.RoundQuantity(qty)
	if !rounded.IsPositive() {
		return types.Zero(), apperror.NewInvalidQuantity(qty)
	}
	return rounded, nil
}

func lockErr(err error) error {
	if apperror.IsAppError(err) {
		return err
	}
	return fmt.Errorf("acquire stock lock: %w", err)
}

func unwrapStep(err error) error {
	var aborted *saga.AbortedError
	if errors.As(err, &aborted) {
		return aborted.Err
	}
	return err
}

func recordErr(span trace.Span, err error) error {
	if err != nil && apperror.IsAlertable(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
