// Package register_repo provides the PostgreSQL stock register.
package register_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	stockMovementsTable = "stock_movements"
	stockBalancesTable  = "stock_balances"
)

var (
	balanceColumns  = postgres.ExtractDBColumns[entity.StockBalance]()
	movementColumns = postgres.ExtractDBColumns[entity.StockMovement]()
)

// StockRepo implements stock.Repository.
//
// Each balance change is one conditional statement plus the movement insert,
// run in the caller's transaction or in a short one of its own. The row lock
// taken by the UPDATE makes concurrent debits of one key queue up, and the
// WHERE clause is re-evaluated after the wait, so a debit can never
// overdraw even across instances.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetBalance returns the balance row for variant+location.
func (r *StockRepo) GetBalance(ctx context.Context, variantID, locationID id.ID) (entity.StockBalance, bool, error) {
	var balance entity.StockBalance

	q := r.builder.Select(balanceColumns...).
		From(stockBalancesTable).
		Where(squirrel.Eq{
			"variant_id":  variantID,
			"location_id": locationID,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return balance, false, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &balance, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return balance, false, nil
		}
		return balance, false, fmt.Errorf("get balance: %w", err)
	}
	return balance, true, nil
}

// Credit upserts the balance and records m.
func (r *StockRepo) Credit(ctx context.Context, m *entity.StockMovement) (types.Quantity, error) {
	var balance types.Quantity

	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		err := r.txManager.GetQuerier(ctx).QueryRow(ctx, `
			INSERT INTO stock_balances (variant_id, location_id, quantity, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (variant_id, location_id)
			DO UPDATE SET quantity = stock_balances.quantity + EXCLUDED.quantity, updated_at = NOW()
			RETURNING quantity
		`, m.VariantID, m.LocationID, m.Quantity).Scan(&balance)
		if err != nil {
			return fmt.Errorf("credit balance: %w", err)
		}

		m.BalanceAfter = balance
		return r.insertMovement(ctx, m)
	})
	return balance, err
}

// Debit subtracts m.Quantity if the balance covers it.
func (r *StockRepo) Debit(ctx context.Context, m *entity.StockMovement) (stock.DebitResult, error) {
	var res stock.DebitResult

	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var balance types.Quantity
		err := r.txManager.GetQuerier(ctx).QueryRow(ctx, `
			UPDATE stock_balances
			SET quantity = quantity - $3, updated_at = NOW()
			WHERE variant_id = $1 AND location_id = $2 AND quantity >= $3
			RETURNING quantity
		`, m.VariantID, m.LocationID, m.Quantity).Scan(&balance)

		if errors.Is(err, pgx.ErrNoRows) {
			current, found, err := r.GetBalance(ctx, m.VariantID, m.LocationID)
			if err != nil {
				return err
			}
			res = stock.DebitResult{Exists: found, Balance: types.Zero()}
			if found {
				res.Balance = current.Quantity
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}

		res = stock.DebitResult{Applied: true, Exists: true, Balance: balance}
		m.BalanceAfter = balance
		return r.insertMovement(ctx, m)
	})
	return res, err
}

func (r *StockRepo) insertMovement(ctx context.Context, m *entity.StockMovement) error {
	data := postgres.StructToMap(m)
	q := r.builder.Insert(stockMovementsTable).
		Columns(movementColumns...).
		Values(postgres.Values(data, movementColumns)...)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// ListBalances returns balances matching filter.
func (r *StockRepo) ListBalances(ctx context.Context, filter stock.BalanceFilter) ([]entity.StockBalance, error) {
	q := r.builder.Select(balanceColumns...).From(stockBalancesTable)

	if filter.VariantID != nil {
		q = q.Where(squirrel.Eq{"variant_id": *filter.VariantID})
	}
	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.ExcludeZero {
		q = q.Where("quantity <> 0")
	}
	q = q.OrderBy("variant_id", "location_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []entity.StockBalance
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}
	return balances, nil
}

// GetMovementHistory returns movements for a variant, newest first.
func (r *StockRepo) GetMovementHistory(ctx context.Context, variantID id.ID, filter stock.MovementFilter) ([]entity.StockMovement, error) {
	q := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"variant_id": variantID})

	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.RecorderID != nil {
		q = q.Where(squirrel.Eq{"recorder_id": *filter.RecorderID})
	}
	if filter.RecordType != nil {
		q = q.Where(squirrel.Eq{"record_type": *filter.RecordType})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at DESC", "id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.StockMovement
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	return movements, nil
}
