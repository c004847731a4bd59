package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/fjod/oil_storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache keeps a JSON copy of each customer's cart lines under
// storefront:cart:<userId>. Entries live for ttl plus up to a fifth of ttl.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, userID string) ([]domain.CartItem, error) {
	raw, err := c.rdb.Get(ctx, cartKey(userID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("read cached cart %s: %w", userID, err)
	}

	var items []domain.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode cached cart %s: %w", userID, err)
	}
	return items, nil
}

func (c *RedisCache) Set(ctx context.Context, userID string, items []domain.CartItem) error {
	if items == nil {
		items = []domain.CartItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", userID, err)
	}
	if err := c.rdb.Set(ctx, cartKey(userID), raw, c.expiry()).Err(); err != nil {
		return fmt.Errorf("cache cart %s: %w", userID, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := c.rdb.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("evict cart %s: %w", userID, err)
	}
	return nil
}

// expiry staggers entries written in the same burst.
func (c *RedisCache) expiry() time.Duration {
	spread := int64(c.ttl / 5)
	if spread <= 0 {
		return c.ttl
	}
	return c.ttl + time.Duration(rand.Int64N(spread+1))
}

func cartKey(userID string) string {
	return "storefront:cart:" + userID
}
