package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"stockledger/pkg/logger"
)

//go:embed schema.sql
var schema string

// Migrate creates the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.Info(ctx, "schema applied")
	return nil
}
