// Package cache keeps priced read results in Redis.
//
// Entries are never deleted one by one. Every write bumps a generation
// counter that is part of each key, so stale entries simply stop being
// addressed and expire through their TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is a generation-keyed JSON cache.
type Cache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

// New returns a cache whose keys start with prefix and live for ttl.
func New(rdb *redis.Client, prefix string, ttl time.Duration, log *zap.Logger) *Cache {
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl, log: log}
}

func (c *Cache) genKey() string { return c.prefix + "gen" }

func (c *Cache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *Cache) key(gen int64, key string) string {
	return fmt.Sprintf("%s%d:%s", c.prefix, gen, key)
}

// Get decodes the entry for key into dst. It reports false on a miss. The
// returned generation is the one the lookup used; a fill after a miss must
// pass it to Set so that a write committed in between is not masked.
func (c *Cache) Get(ctx context.Context, key string, dst any) (int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("read cache generation: %w", err)
	}
	raw, err := c.rdb.Get(ctx, c.key(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return gen, false, nil
	}
	if err != nil {
		return gen, false, fmt.Errorf("read cache entry: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return gen, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return gen, true, nil
}

// Set stores v under key for generation gen. An entry written for a
// generation that has since been bumped is never read.
func (c *Cache) Set(ctx context.Context, gen int64, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(gen, key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Invalidate makes every existing entry unreachable.
func (c *Cache) Invalidate(ctx context.Context) error {
	gen, err := c.rdb.Incr(ctx, c.genKey()).Result()
	if err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	c.log.Debug("cache invalidated", zap.Int64("generation", gen))
	return nil
}

// Nop is a cache that never hits. It is used when Redis is not configured.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (int64, bool, error) { return 0, false, nil }
func (Nop) Set(context.Context, int64, string, any) error { return nil }
func (Nop) Invalidate(context.Context) error { return nil }
