package purchase

import (
	"stockledger/internal/core/numerator"
	"stockledger/internal/domain/transaction"
)

const (
	Kind = transaction.KindPurchase

	// NumeratorStrategy defines the numbering strategy for purchases.
	NumeratorStrategy = numerator.StrategyStrict
)
