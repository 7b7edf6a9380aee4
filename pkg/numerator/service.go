// Package numerator provides the reference-number service.
//
// Counters live in a Store keyed by business, prefix and period, and are
// incremented atomically there. The Cached strategy reserves whole ranges and
// hands them out from memory.
package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	corenum "stockledger/internal/core/numerator"
	"stockledger/pkg/logger"
)

// Key identifies one counter.
type Key struct {
	BusinessID id.ID
	Prefix     string
	Period     string // "202401", "2024" or "" for never-reset counters
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.BusinessID, k.Prefix, k.Period)
}

// Store persists counters.
type Store interface {
	// Increment adds delta to the counter (creating it at 0 first) and
	// returns the new value. Must be atomic per key.
	Increment(ctx context.Context, key Key, delta int64) (int64, error)

	// Set overwrites the counter.
	Set(ctx context.Context, key Key, value int64) error
}

type cachedRange struct {
	current int64
	max     int64
}

// Service provides reference numbering. Safe for concurrent use; a single
// instance is shared by all businesses.
type Service struct {
	store Store

	// rangeStore reserves Cached ranges. It must not join the caller's
	// transaction: a rolled-back reservation would hand the range out again.
	rangeStore Store

	// cacheMu protects ranges
	cacheMu sync.Mutex
	ranges  map[Key]*cachedRange
}

var _ corenum.Generator = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithRangeStore reserves Cached ranges through rs instead of the main store.
// Pass a store bound to the pool, outside any business transaction.
func WithRangeStore(rs Store) Option {
	return func(s *Service) {
		s.rangeStore = rs
	}
}

// New creates a numerator service on top of store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		rangeStore: store,
		ranges:     make(map[Key]*cachedRange),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetNextNumber generates the next number for the business in ctx.
// Pattern: PREFIX-YYYYMM-NNNN (e.g., SAL-202401-0001)
func (s *Service) GetNextNumber(ctx context.Context, cfg corenum.Config, opts *corenum.Options, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if opts == nil {
		opts = corenum.DefaultOptions()
	}

	key := s.buildKey(ctx, cfg, period)

	var (
		num int64
		err error
	)
	switch opts.Strategy {
	case corenum.StrategyCached:
		num, err = s.getNextCached(ctx, key, opts)
	default:
		num, err = s.store.Increment(ctx, key, 1)
		if err != nil {
			err = fmt.Errorf("strict next: %w", err)
		}
	}
	if err != nil {
		return "", err
	}

	return formatNumber(cfg, period, num), nil
}

// getNextCached fetches next number from memory, refilling from the store if needed.
func (s *Service) getNextCached(ctx context.Context, key Key, opts *corenum.Options) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, exists := s.ranges[key]
	if !exists {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	if rng.current >= rng.max {
		size := opts.RangeSize
		if size <= 0 {
			size = 50
		}

		// The store returns the end of the reserved range: (newMax-size, newMax].
		newMax, err := s.rangeStore.Increment(ctx, key, size)
		if err != nil {
			return 0, fmt.Errorf("reserve range: %w", err)
		}
		rng.current = newMax - size
		rng.max = newMax

		logger.Debug(ctx, "numerator range reserved", "key", key.String(), "max", newMax)
	}

	rng.current++
	return rng.current, nil
}

// SetNextNumber sets the counter; the next generated number is value+1.
func (s *Service) SetNextNumber(ctx context.Context, cfg corenum.Config, period time.Time, value int64) error {
	key := s.buildKey(ctx, cfg, period)
	if err := s.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("set next number: %w", err)
	}

	s.cacheMu.Lock()
	delete(s.ranges, key)
	s.cacheMu.Unlock()
	return nil
}

// buildKey scopes the counter to the business in ctx and the reset period.
func (s *Service) buildKey(ctx context.Context, cfg corenum.Config, period time.Time) Key {
	key := Key{BusinessID: appctx.BusinessID(ctx), Prefix: cfg.Prefix}
	switch cfg.ResetPeriod {
	case "year":
		key.Period = period.Format("2006")
	case "never":
	default:
		key.Period = period.Format("200601")
	}
	return key
}

// formatNumber creates the final number string.
func formatNumber(cfg corenum.Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 4
	}

	switch cfg.ResetPeriod {
	case "year":
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	case "never":
		return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
	default:
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("200601"), padWidth, num)
	}
}

// ParseNumber extracts the sequence part from a formatted number.
// Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	i := strings.LastIndexByte(formatted, '-')
	if i < 0 || i == len(formatted)-1 {
		return -1
	}
	n, err := strconv.ParseInt(formatted[i+1:], 10, 64)
	if err != nil {
		return -1
	}
	return n
}
