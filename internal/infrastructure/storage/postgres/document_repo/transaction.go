// Package document_repo provides the PostgreSQL transaction repository.
package document_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/transaction"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	transactionsTable = "transactions"
	linesTable        = "transaction_lines"
)

var (
	headerColumns = postgres.ExtractDBColumns[transaction.Transaction]()
	lineColumns   = postgres.ExtractDBColumns[transaction.Line]()
)

// columns a caller may sort by
var sortable = map[string]struct{}{
	"date": {}, "number": {}, "created_at": {}, "updated_at": {}, "total_amount": {},
}

// TransactionRepo implements transaction.Repository.
type TransactionRepo struct {
	txManager *postgres.TxManager
	inserter  *postgres.BatchInserter
	builder   squirrel.StatementBuilderType
}

var _ transaction.Repository = (*TransactionRepo)(nil)

// NewTransactionRepo creates a new transaction repository.
func NewTransactionRepo(txManager *postgres.TxManager) *TransactionRepo {
	return &TransactionRepo{
		txManager: txManager,
		inserter:  postgres.NewBatchInserter(txManager),
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the header.
func (r *TransactionRepo) Create(ctx context.Context, t *transaction.Transaction) error {
	data := postgres.StructToMap(t)

	sql, args, err := r.builder.Insert(transactionsTable).
		Columns(headerColumns...).
		Values(postgres.Values(data, headerColumns)...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapUniqueViolation(
			fmt.Errorf("insert transaction: %w", err),
			"transaction", "number", t.Number,
		)
	}
	return nil
}

// Delete removes the header; lines go with it by cascade.
func (r *TransactionRepo) Delete(ctx context.Context, txID id.ID) error {
	return r.exec(ctx, "delete transaction", r.builder.Delete(transactionsTable).Where(squirrel.Eq{"id": txID}))
}

// SaveLines copies lines in one round-trip.
func (r *TransactionRepo) SaveLines(ctx context.Context, txID id.ID, lines []transaction.Line) error {
	rows := make([][]any, 0, len(lines))
	for i := range lines {
		l := lines[i]
		l.TransactionID = txID
		rows = append(rows, postgres.Values(postgres.StructToMap(&l), lineColumns))
	}

	if _, err := r.inserter.CopyFromSlice(ctx, linesTable, lineColumns, rows); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

func (r *TransactionRepo) DeleteLines(ctx context.Context, txID id.ID) error {
	return r.exec(ctx, "delete lines", r.builder.Delete(linesTable).Where(squirrel.Eq{"transaction_id": txID}))
}

// GetByID retrieves a header of the given business.
func (r *TransactionRepo) GetByID(ctx context.Context, businessID, txID id.ID) (*transaction.Transaction, error) {
	sql, args, err := r.builder.Select(headerColumns...).
		From(transactionsTable).
		Where(squirrel.Eq{"id": txID, "business_id": businessID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t transaction.Transaction
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("transaction", txID)
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &t, nil
}

// GetLines returns the lines ordered by line number.
func (r *TransactionRepo) GetLines(ctx context.Context, txID id.ID) ([]transaction.Line, error) {
	sql, args, err := r.builder.Select(lineColumns...).
		From(linesTable).
		Where(squirrel.Eq{"transaction_id": txID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []transaction.Line
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select lines: %w", err)
	}
	return lines, nil
}

// MarkFinal flips a draft to final. The status predicate makes the flip a
// compare-and-swap: of two racing completions only one updates a row.
func (r *TransactionRepo) MarkFinal(ctx context.Context, t *transaction.Transaction) (bool, error) {
	q := r.builder.Update(transactionsTable).
		Set("status", t.Status).
		Set("finalized_at", t.FinalizedAt).
		Set("version", t.Version).
		Set("updated_at", t.UpdatedAt).
		Where(squirrel.Eq{"id": t.ID, "status": entity.StatusDraft})

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("mark final: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List retrieves headers with filtering and paging.
func (r *TransactionRepo) List(ctx context.Context, filter transaction.ListFilter) (domain.ListResult[*transaction.Transaction], error) {
	result := domain.ListResult[*transaction.Transaction]{
		Items:  []*transaction.Transaction{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.builder.Select(headerColumns...).
		From(transactionsTable).
		Where(squirrel.Eq{"business_id": filter.BusinessID})

	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.Lt{"date": *filter.DateTo})
	}

	querier := r.txManager.GetQuerier(ctx)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count transactions: %w", err)
	}

	orderBy, err := parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy, "number DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list transactions: %w", err)
	}
	return result, nil
}

func (r *TransactionRepo) exec(ctx context.Context, op string, q squirrel.Sqlizer) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// parseOrderBy accepts "field", "+field" or "-field" for sortable columns.
func parseOrderBy(orderBy string) (string, error) {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		return "date DESC", nil
	}

	direction := "ASC"
	field := orderBy
	switch orderBy[0] {
	case '-':
		direction, field = "DESC", orderBy[1:]
	case '+':
		field = orderBy[1:]
	}

	if _, ok := sortable[field]; !ok {
		return "", apperror.NewValidation("invalid orderBy").
			WithDetail("orderBy", orderBy).
			WithDetail("field", field)
	}
	return field + " " + direction, nil
}
