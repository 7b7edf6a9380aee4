package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalogs/unit"
	"stockledger/pkg/logger"
)

// UnitCache is a read-through unit.Catalog. Units are immutable once used,
// so entries only expire by TTL and are never invalidated.
//
// Redis failures degrade to the underlying catalog.
type UnitCache struct {
	client  redis.Cmdable
	catalog unit.Catalog
	ttl     time.Duration
	prefix  string
}

var _ unit.Catalog = (*UnitCache)(nil)

// NewUnitCache wraps catalog. A zero ttl means one hour.
func NewUnitCache(client redis.Cmdable, catalog unit.Catalog, ttl time.Duration) *UnitCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &UnitCache{
		client:  client,
		catalog: catalog,
		ttl:     ttl,
		prefix:  "stockledger:unit:",
	}
}

func (c *UnitCache) GetUnit(ctx context.Context, unitID id.ID) (*unit.Unit, error) {
	key := c.prefix + unitID.String()

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var u unit.Unit
		if err := json.Unmarshal(raw, &u); err == nil {
			return &u, nil
		}
		logger.Warn(ctx, "corrupt unit cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		logger.Warn(ctx, "unit cache read failed", "key", key, "error", err)
	}

	u, err := c.catalog.GetUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(u); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			logger.Warn(ctx, "unit cache write failed", "key", key, "error", err)
		}
	}
	return u, nil
}
