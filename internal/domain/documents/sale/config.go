package sale

import (
	"stockledger/internal/core/numerator"
	"stockledger/internal/domain/transaction"
)

const (
	// Kind of every transaction this package creates.
	Kind = transaction.KindSale

	// NumeratorStrategy defines the numbering strategy for sales.
	// Sales are primary accounting documents, so numbering is strict.
	NumeratorStrategy = numerator.StrategyStrict
)
