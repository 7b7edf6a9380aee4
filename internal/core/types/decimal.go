// Package types provides numeric types shared by the ledger.
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantity is a stock quantity. Balances always hold base-unit quantities.
// Arithmetic is exact decimal; rounding only happens at storage boundaries.
type Quantity = decimal.Decimal

// Money is a monetary value with full precision.
type Money = decimal.Decimal

// QuantityScale is the number of fractional digits persisted (NUMERIC(20,4)).
const QuantityScale int32 = 4

// DivisionPrecision is used for divisions during unit conversion.
const DivisionPrecision int32 = 16

// NewQuantity creates a quantity from an integer count.
func NewQuantity(v int64) Quantity {
	return decimal.NewFromInt(v)
}

// ParseQuantity parses a decimal string such as "12.5".
func ParseQuantity(s string) (Quantity, error) {
	q, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	return q, nil
}

// MustQuantity parses a decimal string and panics on error.
// Use only for constants and tests.
func MustQuantity(s string) Quantity {
	q, err := ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

// RoundQuantity rounds to the persisted scale.
func RoundQuantity(q Quantity) Quantity {
	return q.Round(QuantityScale)
}

// Zero returns a zero quantity.
func Zero() Quantity {
	return decimal.Zero
}

// SameQuantity compares two quantities at persisted precision.
func SameQuantity(a, b Quantity) bool {
	return RoundQuantity(a).Equal(RoundQuantity(b))
}

// MoneyScale is the number of fractional digits kept for amounts.
const MoneyScale int32 = 2

// RoundMoney rounds an amount half away from zero to MoneyScale.
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}
