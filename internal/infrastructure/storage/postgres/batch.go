package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BatchInserter bulk-inserts rows with the COPY protocol.
type BatchInserter struct {
	txManager *TxManager
}

// NewBatchInserter creates a new batch inserter.
func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// CopyFromSlice copies rows into table. COPY needs a transaction; without
// one in ctx the rows are inserted with a single pipelined batch instead.
func (b *BatchInserter) CopyFromSlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	if t := b.txManager.GetTx(ctx); t != nil {
		n, err := t.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
		if err != nil {
			return n, fmt.Errorf("copy into %s: %w", table, err)
		}
		return n, nil
	}

	var n int64
	err := b.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		n, err = b.CopyFromSlice(ctx, table, columns, rows)
		return err
	})
	return n, err
}
