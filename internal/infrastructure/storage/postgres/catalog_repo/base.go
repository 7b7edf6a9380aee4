// Package catalog_repo provides PostgreSQL implementations of the unit and
// variant catalogs.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/infrastructure/storage/postgres"
)

// BaseCatalogRepo provides insert and lookup for catalog tables whose rows
// are immutable once created.
type BaseCatalogRepo[T any] struct {
	txManager  *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
	builder    squirrel.StatementBuilderType
}

// NewBaseCatalogRepo creates a base repo over tableName.
func NewBaseCatalogRepo[T any](txManager *postgres.TxManager, tableName, entityName string) *BaseCatalogRepo[T] {
	return &BaseCatalogRepo[T]{
		txManager:  txManager,
		tableName:  tableName,
		entityName: entityName,
		selectCols: postgres.ExtractDBColumns[T](),
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *BaseCatalogRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(r.selectCols...).From(r.tableName)
}

// insert writes every tagged column of entity.
func (r *BaseCatalogRepo[T]) insert(ctx context.Context, entity *T, entityID id.ID) error {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in %s", r.entityName)
	}

	sql, args, err := r.builder.Insert(r.tableName).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapUniqueViolation(
			fmt.Errorf("insert %s: %w", r.tableName, err),
			r.entityName, "id", entityID.String(),
		)
	}
	return nil
}

// getByID returns NotFound when no row matches.
func (r *BaseCatalogRepo[T]) getByID(ctx context.Context, entityID id.ID) (*T, error) {
	sql, args, err := r.baseSelect().Where(squirrel.Eq{"id": entityID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	entity := new(T)
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.entityName, entityID)
		}
		return nil, fmt.Errorf("get %s: %w", r.entityName, err)
	}
	return entity, nil
}

func (r *BaseCatalogRepo[T]) listWhere(ctx context.Context, where squirrel.Sqlizer, orderBy string) ([]*T, error) {
	sql, args, err := r.baseSelect().Where(where).OrderBy(orderBy).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*T
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.entityName, err)
	}
	return items, nil
}
