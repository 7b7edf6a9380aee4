package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/lock"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/saga"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain"
	"stockledger/internal/domain/catalogs/unit"
	"stockledger/internal/domain/catalogs/variant"
	"stockledger/pkg/logger"
)

var tracer = otel.Tracer("stockledger/transaction")

// Config wires a Controller.
type Config struct {
	Repo      Repository
	Ledger    Ledger
	Units     unit.Catalog
	Variants  variant.Catalog
	Numerator numerator.Generator

	// TxManager wraps Create and Complete in one database transaction.
	// Optional; compensations run either way.
	TxManager tx.Manager

	// Locker serializes Complete per transaction. Optional.
	Locker lock.Locker

	// Numbering is the default numbering strategy.
	Numbering *numerator.Options

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Controller drives the lifecycle of every transaction kind.
//
// Create persists header and lines and, for final transactions, applies the
// stock effects. Complete finalizes a draft. Both run as sagas: a failure
// at any step undoes the earlier steps in reverse order and returns the
// original error.
type Controller struct {
	repo      Repository
	ledger    Ledger
	units     unit.Catalog
	variants  variant.Catalog
	numerator numerator.Generator
	txManager tx.Manager
	locker    lock.Locker
	numbering *numerator.Options
	clock     func() time.Time
}

// NewController creates a Controller.
func NewController(cfg Config) *Controller {
	c := &Controller{
		repo:      cfg.Repo,
		ledger:    cfg.Ledger,
		units:     cfg.Units,
		variants:  cfg.Variants,
		numerator: cfg.Numerator,
		txManager: cfg.TxManager,
		locker:    cfg.Locker,
		numbering: cfg.Numbering,
		clock:     cfg.Clock,
	}
	if c.txManager == nil {
		c.txManager = tx.Passthrough{}
	}
	if c.numbering == nil {
		c.numbering = numerator.DefaultOptions()
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	return c
}

// CreateRequest is the input of Create.
type CreateRequest struct {
	Kind   Kind
	Status entity.Status // draft when empty

	// Date defaults to now
	Date time.Time

	LocationID            id.ID
	DestinationLocationID *id.ID
	CounterpartyID        *id.ID
	Comment               string

	Lines []LineInput

	// Numbering overrides the controller's numbering strategy
	Numbering *numerator.Options
}

// LineInput is one requested line.
type LineInput struct {
	VariantID id.ID
	UnitID    id.ID
	Quantity  types.Quantity

	Direction             Direction
	UnitPrice             types.Money
	DestinationLocationID *id.ID
	Reason                string
}

// Result is the outcome of Create and Complete.
type Result struct {
	Transaction *Transaction  `json:"transaction"`
	Applied     []AppliedLine `json:"applied,omitempty"`
}

// Option narrows a lookup.
type Option func(*callOptions)

type callOptions struct {
	kind Kind
}

// ExpectKind makes lookups of any other kind report NotFound.
func ExpectKind(k Kind) Option {
	return func(o *callOptions) {
		o.kind = k
	}
}

// Create validates req, resolves units, and persists the transaction. When
// req.Status is final, stock for all lines is checked before any balance
// changes, then every line's effect is applied. The balance locks of all
// lines are held from the check until the database transaction commits.
func (c *Controller) Create(ctx context.Context, req CreateRequest) (*Result, error) {
	ctx, span := tracer.Start(ctx, "transaction.Create", trace.WithAttributes(
		attribute.String("transaction.kind", string(req.Kind)),
		attribute.String("transaction.status", string(req.Status)),
	))
	defer span.End()

	t := c.newTransaction(ctx, req)
	if err := t.Validate(ctx); err != nil {
		return nil, c.fail(ctx, span, "create", t, err)
	}
	if err := c.resolveLines(ctx, t); err != nil {
		return nil, c.fail(ctx, span, "create", t, err)
	}

	if t.IsFinal() {
		held, unlock, err := c.ledger.HoldBalances(ctx, BalanceKeys(t.Effects()))
		if err != nil {
			return nil, c.fail(ctx, span, "create", t, err)
		}
		defer unlock()
		ctx = held

		if err := c.ledger.CheckAvailability(ctx, Requirements(t.Effects())); err != nil {
			return nil, c.fail(ctx, span, "create", t, err)
		}
	}

	numbering := req.Numbering
	if numbering == nil {
		numbering = c.numbering
	}

	var applied []AppliedLine
	err := c.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sg := saga.New("create " + string(t.Kind))

		err := sg.Run(ctx, saga.Step{
			Name: "number",
			Do: func(ctx context.Context) error {
				return c.assignNumber(ctx, t, numbering)
			},
		})
		if err != nil {
			return err
		}

		err = sg.Run(ctx, saga.Step{
			Name: "insert header",
			Do: func(ctx context.Context) error {
				return apperror.Persistence("insert transaction", c.repo.Create(ctx, t))
			},
			Undo: func(ctx context.Context) error {
				return c.repo.Delete(ctx, t.ID)
			},
		})
		if err != nil {
			return err
		}

		err = sg.Run(ctx, saga.Step{
			Name: "insert lines",
			Do: func(ctx context.Context) error {
				return apperror.Persistence("insert lines", c.repo.SaveLines(ctx, t.ID, t.Lines))
			},
			Undo: func(ctx context.Context) error {
				return c.repo.DeleteLines(ctx, t.ID)
			},
		})
		if err != nil {
			return err
		}

		if t.IsFinal() {
			applied, err = c.applyEffects(ctx, sg, t)
		}
		return err
	})
	if err != nil {
		return nil, c.fail(ctx, span, "create", t, err)
	}

	span.SetAttributes(attribute.String("transaction.id", t.ID.String()))
	logger.Info(ctx, "transaction created",
		"id", t.ID,
		"number", t.Number,
		"kind", t.Kind,
		"status", t.Status,
		"lines", len(t.Lines),
	)
	return &Result{Transaction: t, Applied: applied}, nil
}

// Complete finalizes a draft: it re-validates stock for all lines, applies
// every effect and flips the status. Only a draft flips, so a second
// Complete fails with AlreadyFinalized and leaves balances as they were.
func (c *Controller) Complete(ctx context.Context, txID id.ID, opts ...Option) (*Result, error) {
	ctx, span := tracer.Start(ctx, "transaction.Complete", trace.WithAttributes(
		attribute.String("transaction.id", txID.String()),
	))
	defer span.End()

	if c.locker != nil {
		unlock, err := c.locker.Lock(ctx, "transaction:"+txID.String())
		if err != nil {
			return nil, c.fail(ctx, span, "complete", nil, err)
		}
		defer unlock()
	}

	t, err := c.load(ctx, txID, opts)
	if err != nil {
		return nil, c.fail(ctx, span, "complete", nil, err)
	}
	if t.IsFinal() {
		return nil, c.fail(ctx, span, "complete", t, apperror.NewAlreadyFinalized(t.ID))
	}

	if err := c.resolveLines(ctx, t); err != nil {
		return nil, c.fail(ctx, span, "complete", t, err)
	}

	held, unlock, err := c.ledger.HoldBalances(ctx, BalanceKeys(t.Effects()))
	if err != nil {
		return nil, c.fail(ctx, span, "complete", t, err)
	}
	defer unlock()
	ctx = held

	if err := c.ledger.CheckAvailability(ctx, Requirements(t.Effects())); err != nil {
		return nil, c.fail(ctx, span, "complete", t, err)
	}

	var applied []AppliedLine
	err = c.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sg := saga.New("complete " + string(t.Kind))

		var err error
		applied, err = c.applyEffects(ctx, sg, t)
		if err != nil {
			return err
		}

		return sg.Run(ctx, saga.Step{
			Name: "mark final",
			Do: func(ctx context.Context) error {
				t.MarkFinal(c.clock().UTC())
				flipped, err := c.repo.MarkFinal(ctx, t)
				if err != nil {
					return apperror.Persistence("mark final", err)
				}
				if !flipped {
					return c.flipConflict(ctx, t)
				}
				return nil
			},
		})
	})
	if err != nil {
		return nil, c.fail(ctx, span, "complete", t, err)
	}

	logger.Info(ctx, "transaction completed",
		"id", t.ID,
		"number", t.Number,
		"kind", t.Kind,
		"lines", len(t.Lines),
	)
	return &Result{Transaction: t, Applied: applied}, nil
}

// flipConflict explains a status flip that updated no row: another
// Complete won, or the header changed underneath.
func (c *Controller) flipConflict(ctx context.Context, t *Transaction) error {
	current, err := c.repo.GetByID(ctx, t.BusinessID, t.ID)
	if err == nil && current.IsFinal() {
		return apperror.NewAlreadyFinalized(t.ID)
	}
	return apperror.NewConcurrentModification("transaction", t.ID)
}

// Get returns a transaction with its lines.
func (c *Controller) Get(ctx context.Context, txID id.ID, opts ...Option) (*Transaction, error) {
	return c.load(ctx, txID, opts)
}

// List returns transactions of the business in ctx.
func (c *Controller) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transaction], error) {
	filter.BusinessID = appctx.BusinessID(ctx)
	if id.IsNil(filter.BusinessID) {
		return domain.ListResult[*Transaction]{}, apperror.NewValidation("business is required").
			WithDetail("field", "businessId")
	}
	filter.Normalize()

	res, err := c.repo.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*Transaction]{}, apperror.Persistence("list transactions", err)
	}
	return res, nil
}

func (c *Controller) load(ctx context.Context, txID id.ID, opts []Option) (*Transaction, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	businessID := appctx.BusinessID(ctx)
	if id.IsNil(businessID) {
		return nil, apperror.NewValidation("business is required").
			WithDetail("field", "businessId")
	}

	t, err := c.repo.GetByID(ctx, businessID, txID)
	if err != nil {
		return nil, apperror.Persistence("get transaction", err)
	}
	if o.kind != "" && t.Kind != o.kind {
		return nil, apperror.NewNotFound("transaction", txID)
	}

	lines, err := c.repo.GetLines(ctx, txID)
	if err != nil {
		return nil, apperror.Persistence("get lines", err)
	}
	t.Lines = lines
	return t, nil
}

func (c *Controller) newTransaction(ctx context.Context, req CreateRequest) *Transaction {
	doc := entity.NewDocument(appctx.BusinessID(ctx))
	doc.Date = c.clock().UTC()
	if !req.Date.IsZero() {
		doc.Date = req.Date.UTC()
	}
	if req.Status != "" {
		doc.Status = req.Status
	}
	if doc.Status == entity.StatusFinal {
		now := c.clock().UTC()
		doc.FinalizedAt = &now
	}
	doc.Comment = req.Comment

	t := &Transaction{
		Document:              doc,
		Kind:                  req.Kind,
		LocationID:            req.LocationID,
		DestinationLocationID: req.DestinationLocationID,
		CounterpartyID:        req.CounterpartyID,
		Lines:                 make([]Line, 0, len(req.Lines)),
	}
	for i, in := range req.Lines {
		t.Lines = append(t.Lines, Line{
			ID:                    id.New(),
			TransactionID:         t.ID,
			LineNo:                i + 1,
			VariantID:             in.VariantID,
			UnitID:                in.UnitID,
			Quantity:              types.RoundQuantity(in.Quantity),
			Direction:             in.Direction,
			UnitPrice:             in.UnitPrice,
			DestinationLocationID: in.DestinationLocationID,
			Reason:                in.Reason,
		})
	}
	return t
}

// resolveLines fills ProductID, BaseQuantity and Amount of every line.
func (c *Controller) resolveLines(ctx context.Context, t *Transaction) error {
	units := unit.NewResolver(c.units)

	for i := range t.Lines {
		l := &t.Lines[i]

		v, err := c.variants.GetVariant(ctx, l.VariantID)
		if err != nil && !apperror.IsNotFound(err) {
			return apperror.Persistence("get variant", err)
		}
		if err != nil || v.BusinessID != t.BusinessID {
			return apperror.NewValidation("variant not found").
				WithDetail("field", "variantId").
				WithDetail("lineNo", l.LineNo).
				WithDetail("variantId", l.VariantID)
		}

		base, err := units.Convert(ctx, l.Quantity, l.UnitID, v.BaseUnitID)
		switch {
		case apperror.IsNotFound(err):
			return apperror.NewValidation("unit not found").
				WithDetail("field", "unitId").
				WithDetail("lineNo", l.LineNo).
				WithDetail("unitId", l.UnitID)
		case apperror.IsAppError(err):
			appErr, _ := apperror.AsAppError(err)
			return appErr.WithDetail("lineNo", l.LineNo)
		case err != nil:
			return apperror.Persistence("get unit", err)
		}

		l.ProductID = v.ProductID
		l.BaseQuantity = types.RoundQuantity(base)
		if !l.BaseQuantity.IsPositive() {
			return apperror.NewInvalidQuantity(l.Quantity).WithDetail("lineNo", l.LineNo)
		}
		l.Amount = types.RoundMoney(l.Quantity.Mul(l.UnitPrice))
	}

	t.recalculateTotals()
	return nil
}

func (c *Controller) assignNumber(ctx context.Context, t *Transaction, opts *numerator.Options) error {
	if t.Number != "" {
		return nil
	}
	number, err := c.numerator.GetNextNumber(ctx, numerator.DefaultConfig(t.Kind.Prefix()), opts, t.Date)
	if err != nil {
		return apperror.Persistence("generate number", err)
	}
	t.Number = number
	return nil
}

// applyEffects runs one saga step per effect, in line order.
func (c *Controller) applyEffects(ctx context.Context, sg *saga.Saga, t *Transaction) ([]AppliedLine, error) {
	effects := t.Effects()
	applied := make([]AppliedLine, 0, len(effects))

	for _, e := range effects {
		var out AppliedLine
		err := sg.Run(ctx, saga.Step{
			Name: fmt.Sprintf("apply line %d", e.LineNo),
			Do: func(ctx context.Context) error {
				var err error
				out, err = apply(ctx, c.ledger, t.ID, e)
				if appErr, ok := apperror.AsAppError(err); ok {
					appErr.WithDetail("lineNo", e.LineNo)
				}
				return err
			},
			Undo: func(ctx context.Context) error {
				return revert(ctx, c.ledger, t.ID, e)
			},
		})
		if err != nil {
			return nil, err
		}
		applied = append(applied, out)
	}
	return applied, nil
}

// fail unwraps saga aborts to the original error, logs by severity and
// records alertable errors on the span.
func (c *Controller) fail(ctx context.Context, span trace.Span, op string, t *Transaction, err error) error {
	compensated := true
	var aborted *saga.AbortedError
	if errors.As(err, &aborted) {
		compensated = aborted.Clean()
		err = aborted.Err
	}

	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		err = apperror.Persistence(op+" transaction", err)
	}

	kv := []any{"op", op, "code", apperror.CodeOf(err), "error", err}
	if t != nil {
		kv = append(kv, "id", t.ID, "kind", t.Kind, "number", t.Number)
	}

	if !compensated {
		if appErr, ok := apperror.AsAppError(err); ok {
			appErr.WithDetail("compensated", false)
		}
		logger.Error(ctx, "transaction rollback incomplete", kv...)
	} else if apperror.IsAlertable(err) {
		logger.Error(ctx, "transaction failed", kv...)
	} else {
		logger.Info(ctx, "transaction rejected", kv...)
	}

	if apperror.IsAlertable(err) || !compensated {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
