// Package numerator provides domain contracts for transaction reference numbering.
package numerator

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict increments the stored counter for every number.
	// Numbers are sequential without gaps as long as the surrounding
	// write commits.
	StrategyStrict Strategy = iota

	// StrategyCached allocates ranges of numbers in memory.
	// Much faster, but may produce gaps if the process restarts.
	StrategyCached
)

// ParseStrategy maps a config value to a Strategy. Unknown values mean Strict.
func ParseStrategy(s string) Strategy {
	if s == "cached" {
		return StrategyCached
	}
	return StrategyStrict
}

// Options configuration for number generation.
type Options struct {
	// Strategy to use for number generation
	Strategy Strategy
	// RangeSize is the number of values to allocate at once in Cached strategy.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{
		Strategy: StrategyStrict,
	}
}

// Config holds numbering configuration for one transaction kind.
type Config struct {
	// Prefix identifies the kind (e.g., "SAL", "PUR")
	Prefix string

	// PadWidth is the minimum width of the sequence part (default 4)
	PadWidth int

	// ResetPeriod: "month" (default), "year", "never"
	ResetPeriod string
}

// DefaultConfig returns the PREFIX-YYYYMM-NNNN scheme.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		PadWidth:    4,
		ResetPeriod: "month",
	}
}
