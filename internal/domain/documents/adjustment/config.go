package adjustment

import (
	"stockledger/internal/core/numerator"
	"stockledger/internal/domain/transaction"
)

const (
	Kind = transaction.KindAdjustment

	// NumeratorStrategy defines the numbering strategy for adjustments.
	// Adjustments are internal documents; gaps after a restart are acceptable.
	NumeratorStrategy = numerator.StrategyCached

	// RangeSize is the number of reference numbers reserved at once.
	RangeSize = 20
)
