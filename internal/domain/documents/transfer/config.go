package transfer

import (
	"stockledger/internal/core/numerator"
	"stockledger/internal/domain/transaction"
)

const (
	Kind = transaction.KindTransfer

	NumeratorStrategy = numerator.StrategyCached
	RangeSize         = 20
)
