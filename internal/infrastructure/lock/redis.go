// Package lock provides a Redis-backed lock.Locker for deployments where
// several processes share one database.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"

	"stockledger/internal/core/apperror"
	corelock "stockledger/internal/core/lock"
	"stockledger/pkg/logger"
)

// Config tunes lock acquisition.
type Config struct {
	// Prefix namespaces keys, e.g. "stockledger:lock:"
	Prefix string

	// TTL bounds how long a crashed holder can block others.
	TTL time.Duration

	// Backoff between attempts grows from MinBackoff to MaxBackoff.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	// MaxAttempts before giving up with LOCK_NOT_OBTAINED.
	MaxAttempts int
}

// DefaultConfig suits ledger mutations that finish in milliseconds.
func DefaultConfig() Config {
	return Config{
		Prefix:      "stockledger:lock:",
		TTL:         10 * time.Second,
		MinBackoff:  5 * time.Millisecond,
		MaxBackoff:  200 * time.Millisecond,
		MaxAttempts: 50,
	}
}

// RedisLocker implements lock.Locker with redislock.
type RedisLocker struct {
	client *redislock.Client
	cfg    Config
}

var _ corelock.Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a locker over a go-redis client.
func NewRedisLocker(client redislock.RedisClient, cfg Config) *RedisLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	return &RedisLocker{client: redislock.New(client), cfg: cfg}
}

// Lock retries with exponential backoff until the key is obtained, the
// attempts run out or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (corelock.Unlock, error) {
	retry := redislock.LimitRetry(
		redislock.ExponentialBackoff(l.cfg.MinBackoff, l.cfg.MaxBackoff),
		l.cfg.MaxAttempts,
	)

	held, err := l.client.Obtain(ctx, l.cfg.Prefix+key, l.cfg.TTL, &redislock.Options{RetryStrategy: retry})
	switch {
	case errors.Is(err, redislock.ErrNotObtained):
		logger.Warn(ctx, "lock not obtained", "key", key, "attempts", l.cfg.MaxAttempts)
		return nil, apperror.NewLockNotObtained(key)
	case err != nil:
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	return func() {
		// Release must not depend on the caller's ctx, which may be cancelled.
		if err := held.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn(ctx, "lock release failed", "key", key, "error", err)
		}
	}, nil
}
