package transaction_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/lock"
	corenum "stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalogs/unit"
	"stockledger/internal/domain/catalogs/variant"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/domain/transaction"
	"stockledger/internal/infrastructure/storage/memory"
	"stockledger/pkg/numerator"
)

var testDate = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	ctx        context.Context
	businessID id.ID
	piece      *unit.Unit
	box        *unit.Unit
	kg         *unit.Unit
	v1, v2     *variant.Variant
	loc1, loc2 id.ID

	txRepo    *memory.TransactionRepo
	stockRepo *memory.StockRepo
	ledger    *stock.Service
	cfg       transaction.Config
	ctrl      *transaction.Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		businessID: id.New(),
		loc1:       id.New(),
		loc2:       id.New(),
		txRepo:     memory.NewTransactionRepo(),
		stockRepo:  memory.NewStockRepo(),
	}
	f.ctx = appctx.WithScope(context.Background(), appctx.Scope{BusinessID: f.businessID, UserID: "tester"})

	units := memory.NewUnitRepo()
	f.piece = unit.NewBaseUnit(f.businessID, "Piece", "pcs")
	f.box = unit.NewSubUnit(f.piece, "Box", "box", decimal.NewFromInt(12))
	f.kg = unit.NewBaseUnit(f.businessID, "Kilogram", "kg")
	for _, u := range []*unit.Unit{f.piece, f.box, f.kg} {
		require.NoError(t, units.Create(f.ctx, u))
	}

	variants := memory.NewVariantRepo()
	f.v1 = variant.NewVariant(f.businessID, id.New(), f.piece.ID, "Cola 0.5")
	f.v2 = variant.NewVariant(f.businessID, id.New(), f.piece.ID, "Water 1.0")
	require.NoError(t, variants.Create(f.ctx, f.v1))
	require.NoError(t, variants.Create(f.ctx, f.v2))

	f.ledger = stock.NewService(f.stockRepo, nil)
	f.cfg = transaction.Config{
		Repo:      f.txRepo,
		Ledger:    f.ledger,
		Units:     units,
		Variants:  variants,
		Numerator: numerator.New(memory.NewSequenceStore()),
		Locker:    lock.NewKeyedMutex(),
		Clock:     func() time.Time { return testDate },
	}
	f.ctrl = transaction.NewController(f.cfg)
	return f
}

func (f *fixture) stock(t *testing.T, v *variant.Variant, loc id.ID, qty string) {
	t.Helper()
	_, err := f.ledger.Increase(f.ctx, v.ID, loc, types.MustQuantity(qty))
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, v *variant.Variant, loc id.ID) string {
	t.Helper()
	b, err := f.ledger.GetBalance(f.ctx, v.ID, loc)
	require.NoError(t, err)
	return b.String()
}

func (f *fixture) count(t *testing.T) int64 {
	t.Helper()
	res, err := f.ctrl.List(f.ctx, transaction.ListFilter{})
	require.NoError(t, err)
	return res.TotalCount
}

func (f *fixture) line(v *variant.Variant, u *unit.Unit, qty string) transaction.LineInput {
	return transaction.LineInput{VariantID: v.ID, UnitID: u.ID, Quantity: types.MustQuantity(qty)}
}

func TestCreate_DraftLeavesStock(t *testing.T) {
	f := newFixture(t)

	res, err := f.ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindPurchase,
		Date:       testDate,
		LocationID: f.loc1,
		Lines:      []transaction.LineInput{f.line(f.v1, f.box, "2")},
	})
	require.NoError(t, err)

	tx := res.Transaction
	assert.Equal(t, entity.StatusDraft, tx.Status)
	assert.Equal(t, "PUR-202403-0001", tx.Number)
	assert.Nil(t, tx.FinalizedAt)
	assert.Empty(t, res.Applied)
	assert.Equal(t, "0", f.balance(t, f.v1, f.loc1))

	stored, err := f.ctrl.Get(f.ctx, tx.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, "24", stored.Lines[0].BaseQuantity.String())
	assert.Equal(t, f.v1.ProductID, stored.Lines[0].ProductID)
}

func TestCreate_FinalPurchaseConvertsUnits(t *testing.T) {
	f := newFixture(t)

	line := f.line(f.v1, f.box, "2")
	line.UnitPrice = types.MustQuantity("30.005")

	res, err := f.ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindPurchase,
		Status:     entity.StatusFinal,
		Date:       testDate,
		LocationID: f.loc1,
		Lines:      []transaction.LineInput{line, f.line(f.v2, f.piece, "3")},
	})
	require.NoError(t, err)

	assert.Equal(t, entity.StatusFinal, res.Transaction.Status)
	require.NotNil(t, res.Transaction.FinalizedAt)
	assert.Equal(t, "27", res.Transaction.TotalQuantity.String())
	assert.Equal(t, "60.01", res.Transaction.TotalAmount.String())

	require.Len(t, res.Applied, 2)
	assert.Equal(t, 1, res.Applied[0].LineNo)
	assert.Equal(t, "24", res.Applied[0].BaseQuantity.String())
	assert.Equal(t, "24", res.Applied[0].Balance.String())

	assert.Equal(t, "24", f.balance(t, f.v1, f.loc1))
	assert.Equal(t, "3", f.balance(t, f.v2, f.loc1))
}

func TestCreate_NumbersIncrementPerKind(t *testing.T) {
	f := newFixture(t)

	create := func(kind transaction.Kind) string {
		req := transaction.CreateRequest{
			Kind:       kind,
			Date:       testDate,
			LocationID: f.loc1,
			Lines:      []transaction.LineInput{f.line(f.v1, f.piece, "1")},
		}
		if kind == transaction.KindAdjustment {
			req.Lines[0].Direction = transaction.DirectionIncrease
		}
		res, err := f.ctrl.Create(f.ctx, req)
		require.NoError(t, err)
		return res.Transaction.Number
	}

	assert.Equal(t, "SAL-202403-0001", create(transaction.KindSale))
	assert.Equal(t, "SAL-202403-0002", create(transaction.KindSale))
	assert.Equal(t, "ADJ-202403-0001", create(transaction.KindAdjustment))
}

func TestCreate_FinalSaleInsufficientOnSecondLine(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.v1, f.loc1, "10")
	f.stock(t, f.v2, f.loc1, "1")

	_, err := f.ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindSale,
		Status:     entity.StatusFinal,
		LocationID: f.loc1,
		Lines: []transaction.LineInput{
			f.line(f.v1, f.piece, "4"),
			f.line(f.v2, f.piece, "2"),
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	assert.Equal(t, "10", f.balance(t, f.v1, f.loc1))
	assert.Equal(t, "1", f.balance(t, f.v2, f.loc1))
	assert.Zero(t, f.count(t))
}

func TestCreate_RepeatedVariantChecksTotal(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.v1, f.loc1, "10")

	_, err := f.ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindSale,
		Status:     entity.StatusFinal,
		LocationID: f.loc1,
		Lines: []transaction.LineInput{
			f.line(f.v1, f.piece, "6"),
			f.line(f.v1, f.piece, "6"),
		},
	})
	require.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, "10", f.balance(t, f.v1, f.loc1))
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	unknown := id.New()

	tests := []struct {
		name string
		req  transaction.CreateRequest
		code string
	}{
		{
			name: "no lines",
			req:  transaction.CreateRequest{Kind: transaction.KindSale, LocationID: f.loc1},
			code: apperror.CodeValidation,
		},
		{
			name: "no location",
			req: transaction.CreateRequest{
				Kind:  transaction.KindSale,
				Lines: []transaction.LineInput{f.line(f.v1, f.piece, "1")},
			},
			code: apperror.CodeValidation,
		},
		{
			name: "unknown kind",
			req: transaction.CreateRequest{
				Kind:       "return",
				LocationID: f.loc1,
				Lines:      []transaction.LineInput{f.line(f.v1, f.piece, "1")},
			},
			code: apperror.CodeValidation,
		},
		{
			name: "bad status",
			req: transaction.CreateRequest{
				Kind:       transaction.KindSale,
				Status:     "posted",
				LocationID: f.loc1,
				Lines:      []transaction.LineInput{f.line(f.v1, f.piece, "1")},
			},
			code: apperror.CodeValidation,
		},
		{
			name: "zero quantity",
			req: transaction.CreateRequest{
				Kind:       transaction.KindPurchase,
				LocationID: f.loc1,
				Lines:      []transaction.LineInput{f.line(f.v1, f.piece, "0")},
			},
			code: apperror.CodeValidation,
		},
		{
			name: "adjustment without direction",
			req: transaction.CreateRequest{
				Kind:       transaction.KindAdjustment,
				LocationID: f.loc1,
				Lines:      []transaction.LineInput{f.line(f.v1, f.piece, "1")},
			},
			code: apperror.CodeValidation,
		},
		{
			name: "transfer without destination",
			req: transaction.CreateRequest{
				Kind:       transaction.KindTransfer,
				LocationID: f.loc1,
				Lines:      []transaction.LineInput{f.line(f.v1, f.piece, "1")},
			},
			code: apperror.CodeValidation,
		},
		{
			name: "transfer to same location",
			req: transaction.CreateRequest{
				Kind:                  transaction.KindTransfer,
				LocationID:            f.loc1,
				DestinationLocationID: &f.loc1,
				Lines:                 []transaction.LineInput{f.line(f.v1, f.piece, "1")},
			},
			code: apperror.CodeSameLocation,
		},
		{
			name: "unknown unit",
			req: transaction.CreateRequest{
				Kind:       transaction.KindPurchase,
				LocationID: f.loc1,
				Lines: []transaction.LineInput{
					{VariantID: f.v1.ID, UnitID: unknown, Quantity: types.NewQuantity(1)},
				},
			},
			code: apperror.CodeValidation,
		},
		{
			name: "unknown variant",
			req: transaction.CreateRequest{
				Kind:       transaction.KindPurchase,
				LocationID: f.loc1,
				Lines: []transaction.LineInput{
					{VariantID: unknown, UnitID: f.piece.ID, Quantity: types.NewQuantity(1)},
				},
			},
			code: apperror.CodeValidation,
		},
		{
			name: "unrelated unit",
			req: transaction.CreateRequest{
				Kind:       transaction.KindPurchase,
				LocationID: f.loc1,
				Lines:      []transaction.LineInput{f.line(f.v1, f.kg, "1")},
			},
			code: apperror.CodeIncompatibleUnits,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ctrl.Create(f.ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperror.CodeOf(err), err.Error())
		})
	}
	assert.Zero(t, f.count(t))
}

func TestCreate_LineErrorsCarryLineNo(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindPurchase,
		LocationID: f.loc1,
		Lines: []transaction.LineInput{
			f.line(f.v1, f.piece, "1"),
			f.line(f.v2, f.kg, "1"),
		},
	})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 2, appErr.Details["lineNo"])
}

func TestCreate_RequiresBusiness(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.Create(context.Background(), transaction.CreateRequest{
		Kind:       transaction.KindPurchase,
		LocationID: f.loc1,
		Lines:      []transaction.LineInput{f.line(f.v1, f.piece, "1")},
	})
	assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
}

func TestComplete_AdjustmentExactlyOnce(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.v1, f.loc1, "10")

	res, err := f.ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindAdjustment,
		LocationID: f.loc1,
		Lines: []transaction.LineInput{
			{VariantID: f.v1.ID, UnitID: f.piece.ID, Quantity: types.NewQuantity(3), Direction: transaction.DirectionDecrease, Reason: "damaged"},
			{VariantID: f.v2.ID, UnitID: f.box.ID, Quantity: types.NewQuantity(1), Direction: transaction.DirectionIncrease},
		},
	})
	require.NoError(t, err)
	txID := res.Transaction.ID
	assert.Equal(t, "10", f.balance(t, f.v1, f.loc1))
	assert.Equal(t, "0", f.balance(t, f.v2, f.loc1))

	done, err := f.ctrl.Complete(f.ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFinal, done.Transaction.Status)
	assert.Equal(t, testDate, *done.Transaction.FinalizedAt)
	assert.Equal(t, "7", f.balance(t, f.v1, f.loc1))
	assert.Equal(t, "12", f.balance(t, f.v2, f.loc1))

	_, err = f.ctrl.Complete(f.ctx, txID)
	require.Error(t, err)
	assert.True(t, apperror.IsAlreadyFinalized(err))
	assert.Equal(t, "7", f.balance(t, f.v1, f.loc1))
	assert.Equal(t, "12", f.balance(t, f.v2, f.loc1))

	stored, err := f.ctrl.Get(f.ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFinal, stored.Status)
	assert.Equal(t, res.Transaction.Number, stored.Number)

	history, err := f.ledger.History(f.ctx, f.v1.ID, stock.MovementFilter{RecorderID: &txID})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "damaged", history[0].Reason)
}

func TestComplete_CreatedFinalIsRejected(t *testing.T) {
	f := newFixture(t)

	res, err := f.ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindPurchase,
		Status:     entity.StatusFinal,
		LocationID: f.loc1,
		Lines:      []transaction.LineInput{f.line(f.v1, f.piece, "5")},
	})
	require.NoError(t, err)

	_, err = f.ctrl.Complete(f.ctx, res.Transaction.ID)
	assert.True(t, apperror.IsAlreadyFinalized(err))
	assert.Equal(t, "5", f.balance(t, f.v1, f.loc1))
}

func TestComplete_InsufficientKeepsDraft(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.v1, f.loc1, "2")

	res, err := f.ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindSale,
		LocationID: f.loc1,
		Lines:      []transaction.LineInput{f.line(f.v1, f.piece, "3")},
	})
	require.NoError(t, err)

	_, err = f.ctrl.Complete(f.ctx, res.Transaction.ID)
	assert.True(t, apperror.IsInsufficientStock(err))

	stored, err := f.ctrl.Get(f.ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, stored.Status)

	f.stock(t, f.v1, f.loc1, "1")
	_, err = f.ctrl.Complete(f.ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, "0", f.balance(t, f.v1, f.loc1))
}

func TestComplete_NotFound(t *testing.T) {
	f := newFixture(t)

	res, err := f.ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindPurchase,
		LocationID: f.loc1,
		Lines:      []transaction.LineInput{f.line(f.v1, f.piece, "1")},
	})
	require.NoError(t, err)

	_, err = f.ctrl.Complete(f.ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))

	other := appctx.WithScope(context.Background(), appctx.Scope{BusinessID: id.New()})
	_, err = f.ctrl.Complete(other, res.Transaction.ID)
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.ctrl.Complete(f.ctx, res.Transaction.ID, transaction.ExpectKind(transaction.KindSale))
	assert.True(t, apperror.IsNotFound(err))

	assert.Equal(t, "0", f.balance(t, f.v1, f.loc1))
}

func TestComplete_ConcurrentCallsApplyOnce(t *testing.T) {
	f := newFixture(t)

	res, err := f.ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindPurchase,
		LocationID: f.loc1,
		Lines:      []transaction.LineInput{f.line(f.v1, f.piece, "5")},
	})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		finalized int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ctrl.Complete(f.ctx, res.Transaction.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperror.IsAlreadyFinalized(err):
				finalized++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 9, finalized)
	assert.Equal(t, "5", f.balance(t, f.v1, f.loc1))
}

func TestTransfer_FinalMovesPerLineDestination(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.v1, f.loc1, "30")
	loc3 := id.New()

	res, err := f.ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:                  transaction.KindTransfer,
		Status:                entity.StatusFinal,
		LocationID:            f.loc1,
		DestinationLocationID: &f.loc2,
		Lines: []transaction.LineInput{
			f.line(f.v1, f.box, "1"),
			{VariantID: f.v1.ID, UnitID: f.piece.ID, Quantity: types.NewQuantity(5), DestinationLocationID: &loc3},
		},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^TRF-\d{6}-0001$`, res.Transaction.Number)

	require.Len(t, res.Applied, 2)
	require.NotNil(t, res.Applied[1].DestinationBalance)
	assert.Equal(t, "5", res.Applied[1].DestinationBalance.String())

	assert.Equal(t, "13", f.balance(t, f.v1, f.loc1))
	assert.Equal(t, "12", f.balance(t, f.v1, f.loc2))
	assert.Equal(t, "5", f.balance(t, f.v1, loc3))
}

// --- fault injection ---

type failingLines struct {
	*memory.TransactionRepo
}

func (failingLines) SaveLines(context.Context, id.ID, []transaction.Line) error {
	return errors.New("lines table unavailable")
}

func TestCreate_LineInsertFailureRemovesHeader(t *testing.T) {
	f := newFixture(t)
	f.cfg.Repo = failingLines{f.txRepo}
	ctrl := transaction.NewController(f.cfg)

	_, err := ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindPurchase,
		Status:     entity.StatusFinal,
		LocationID: f.loc1,
		Lines:      []transaction.LineInput{f.line(f.v1, f.piece, "1")},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeDatabase, apperror.CodeOf(err))

	assert.Zero(t, f.count(t))
	assert.Equal(t, "0", f.balance(t, f.v1, f.loc1))
}

// flakyLedger fails the n-th Decrease.
type flakyLedger struct {
	*stock.Service
	failOn int
	calls  int
}

func (l *flakyLedger) Decrease(ctx context.Context, variantID, locationID id.ID, qty types.Quantity, opts ...stock.MutationOption) (types.Quantity, error) {
	l.calls++
	if l.calls == l.failOn {
		return types.Zero(), errors.New("write timeout")
	}
	return l.Service.Decrease(ctx, variantID, locationID, qty, opts...)
}

func TestCreate_StockFailureUndoesEarlierLines(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.v1, f.loc1, "10")
	f.stock(t, f.v2, f.loc1, "10")

	f.cfg.Ledger = &flakyLedger{Service: f.ledger, failOn: 2}
	ctrl := transaction.NewController(f.cfg)

	_, err := ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindSale,
		Status:     entity.StatusFinal,
		LocationID: f.loc1,
		Lines: []transaction.LineInput{
			f.line(f.v1, f.piece, "4"),
			f.line(f.v2, f.piece, "4"),
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeDatabase, apperror.CodeOf(err))

	assert.Equal(t, "10", f.balance(t, f.v1, f.loc1))
	assert.Equal(t, "10", f.balance(t, f.v2, f.loc1))
	assert.Zero(t, f.count(t))

	history, err := f.ledger.History(f.ctx, f.v1.ID, stock.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "compensation", history[0].Reason)
}

// rollbackTx marks ctx atomic like a database transaction and records
// whether it would have rolled back.
type rollbackTx struct {
	rolledBack bool
}

func (m *rollbackTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(tx.WithAtomic(ctx))
	m.rolledBack = err != nil
	return err
}

func TestCreate_AtomicFailureLeavesUndoToRollback(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.v1, f.loc1, "10")
	f.stock(t, f.v2, f.loc1, "10")

	txm := &rollbackTx{}
	f.cfg.TxManager = txm
	f.cfg.Ledger = &flakyLedger{Service: f.ledger, failOn: 2}
	ctrl := transaction.NewController(f.cfg)

	_, err := ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindSale,
		Status:     entity.StatusFinal,
		LocationID: f.loc1,
		Lines: []transaction.LineInput{
			f.line(f.v1, f.piece, "4"),
			f.line(f.v2, f.piece, "4"),
		},
	})
	require.Error(t, err)
	assert.True(t, txm.rolledBack)
	assert.Equal(t, apperror.CodeDatabase, apperror.CodeOf(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.NotContains(t, appErr.Details, "compensated")

	// No compensating writes were issued; the rollback restores line 1.
	history, err := f.ledger.History(f.ctx, f.v1.ID, stock.MovementFilter{})
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

// commitGate blocks after fn returns, as if the commit were slow.
type commitGate struct {
	entered chan struct{}
	release chan struct{}
}

func (g *commitGate) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	close(g.entered)
	<-g.release
	return err
}

func TestCreate_HoldsBalanceLocksUntilCommit(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.v1, f.loc1, "10")

	gate := &commitGate{entered: make(chan struct{}), release: make(chan struct{})}
	f.cfg.TxManager = gate
	ctrl := transaction.NewController(f.cfg)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Create(f.ctx, transaction.CreateRequest{
			Kind:       transaction.KindSale,
			Status:     entity.StatusFinal,
			LocationID: f.loc1,
			Lines: []transaction.LineInput{
				f.line(f.v1, f.piece, "3"),
				f.line(f.v1, f.piece, "2"),
			},
		})
		done <- err
	}()
	<-gate.entered

	busy, cancel := context.WithTimeout(f.ctx, 20*time.Millisecond)
	defer cancel()
	_, err := f.ledger.Decrease(busy, f.v1.ID, f.loc1, types.MustQuantity("1"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = f.ledger.Increase(f.ctx, f.v2.ID, f.loc1, types.MustQuantity("1"))
	require.NoError(t, err)

	close(gate.release)
	require.NoError(t, <-done)

	_, err = f.ledger.Decrease(f.ctx, f.v1.ID, f.loc1, types.MustQuantity("1"))
	require.NoError(t, err)
	assert.Equal(t, "4", f.balance(t, f.v1, f.loc1))
}

// lostRace reports every status flip as matching no row.
type lostRace struct {
	*memory.TransactionRepo
}

func (lostRace) MarkFinal(context.Context, *transaction.Transaction) (bool, error) {
	return false, nil
}

func TestComplete_LostStatusFlipRevertsStock(t *testing.T) {
	f := newFixture(t)
	f.cfg.Repo = lostRace{f.txRepo}
	ctrl := transaction.NewController(f.cfg)

	res, err := ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindPurchase,
		LocationID: f.loc1,
		Lines:      []transaction.LineInput{f.line(f.v1, f.piece, "5")},
	})
	require.NoError(t, err)

	_, err = ctrl.Complete(f.ctx, res.Transaction.ID)
	assert.True(t, apperror.IsConcurrentModification(err))
	assert.Equal(t, "0", f.balance(t, f.v1, f.loc1))
}

func TestList_FiltersByKindAndStatus(t *testing.T) {
	f := newFixture(t)

	for _, kind := range []transaction.Kind{transaction.KindPurchase, transaction.KindPurchase, transaction.KindSale} {
		_, err := f.ctrl.Create(f.ctx, transaction.CreateRequest{
			Kind:       kind,
			LocationID: f.loc1,
			Lines:      []transaction.LineInput{f.line(f.v1, f.piece, "1")},
		})
		require.NoError(t, err)
	}

	purchases := transaction.KindPurchase
	res, err := f.ctrl.List(f.ctx, transaction.ListFilter{Kind: &purchases})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.TotalCount)

	final := entity.StatusFinal
	res, err = f.ctrl.List(f.ctx, transaction.ListFilter{Status: &final})
	require.NoError(t, err)
	assert.Zero(t, res.TotalCount)
}

func TestCreate_NumberingOptionsReachGenerator(t *testing.T) {
	f := newFixture(t)
	var (
		gotCfg    corenum.Config
		gotOpts   *corenum.Options
		gotPeriod time.Time
	)
	f.cfg.Numerator = &corenum.MockGenerator{
		GetNextNumberFunc: func(_ context.Context, cfg corenum.Config, opts *corenum.Options, period time.Time) (string, error) {
			gotCfg, gotOpts, gotPeriod = cfg, opts, period
			return "ADJ-202403-0042", nil
		},
	}
	ctrl := transaction.NewController(f.cfg)

	res, err := ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindAdjustment,
		LocationID: f.loc1,
		Lines: []transaction.LineInput{{
			VariantID: f.v1.ID, UnitID: f.piece.ID,
			Quantity: types.MustQuantity("1"), Direction: transaction.DirectionIncrease,
		}},
		Numbering: &corenum.Options{Strategy: corenum.StrategyCached, RangeSize: 20},
	})
	require.NoError(t, err)

	assert.Equal(t, "ADJ-202403-0042", res.Transaction.Number)
	assert.Equal(t, "ADJ", gotCfg.Prefix)
	assert.Equal(t, corenum.StrategyCached, gotOpts.Strategy)
	assert.Equal(t, int64(20), gotOpts.RangeSize)
	assert.True(t, gotPeriod.Equal(testDate))
}

func TestCreate_NumberingFailureCreatesNothing(t *testing.T) {
	f := newFixture(t)
	f.cfg.Numerator = &corenum.MockGenerator{
		GetNextNumberFunc: func(context.Context, corenum.Config, *corenum.Options, time.Time) (string, error) {
			return "", errors.New("sequences table locked")
		},
	}
	ctrl := transaction.NewController(f.cfg)

	_, err := ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindPurchase,
		Status:     entity.StatusFinal,
		LocationID: f.loc1,
		Lines:      []transaction.LineInput{f.line(f.v1, f.piece, "4")},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeDatabase, apperror.CodeOf(err))

	assert.Zero(t, f.count(t))
	assert.Equal(t, "0", f.balance(t, f.v1, f.loc1))
}

func TestCreate_LineQuantityRoundedToStoredScale(t *testing.T) {
	f := newFixture(t)

	draft, err := f.ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindPurchase,
		LocationID: f.loc1,
		Lines:      []transaction.LineInput{f.line(f.v1, f.box, "0.33335")},
	})
	require.NoError(t, err)
	assert.Equal(t, "0.3334", draft.Transaction.Lines[0].Quantity.String())

	done, err := f.ctrl.Complete(f.ctx, draft.Transaction.ID)
	require.NoError(t, err)
	require.Len(t, done.Applied, 1)
	assert.Equal(t, "4.0008", done.Applied[0].BaseQuantity.String())

	// Created final, the same input lands on the same base quantity.
	final, err := f.ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindPurchase,
		Status:     entity.StatusFinal,
		LocationID: f.loc2,
		Lines:      []transaction.LineInput{f.line(f.v1, f.box, "0.33335")},
	})
	require.NoError(t, err)
	assert.Equal(t, "4.0008", final.Applied[0].BaseQuantity.String())
	assert.Equal(t, "4.0008", f.balance(t, f.v1, f.loc1))
	assert.Equal(t, "4.0008", f.balance(t, f.v1, f.loc2))
}

func TestCreate_FinalAdjustmentWithoutRecord(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.Create(f.ctx, transaction.CreateRequest{
		Kind:       transaction.KindAdjustment,
		Status:     entity.StatusFinal,
		LocationID: f.loc1,
		Lines: []transaction.LineInput{
			{VariantID: f.v1.ID, UnitID: f.piece.ID, Quantity: types.NewQuantity(1), Direction: transaction.DirectionDecrease},
		},
	})
	assert.Equal(t, apperror.CodeNoStockRecord, apperror.CodeOf(err))
	assert.Zero(t, f.count(t))
}
