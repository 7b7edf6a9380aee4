// Package numerator provides domain contracts for transaction reference numbering.
// Implementations live in pkg/numerator.
package numerator

import (
	"context"
	"time"
)

// Generator generates sequential reference numbers.
//
// Counters are scoped to the business found in ctx, the config prefix and
// the reset period containing period.
type Generator interface {
	// GetNextNumber generates the next number.
	// Pattern: PREFIX-YYYYMM-NNNN (e.g., SAL-202401-0001)
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber sets the counter value (for migration purposes).
	// The next generated number is value+1.
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
