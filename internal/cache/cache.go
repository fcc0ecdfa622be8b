// Package cache provides an optional Redis-backed JSON cache.
// A nil *Cache is valid and behaves as an always-missing cache.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
}

// New wraps a Redis client. Entries expire after ttl; a non-positive ttl disables caching.
func New(client *redis.Client, ttl time.Duration, prefix string) *Cache {
	return &Cache{redis: client, ttl: ttl, prefix: prefix}
}

// NewClient builds a Redis client from connection settings.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (c *Cache) enabled() bool {
	return c != nil && c.redis != nil && c.ttl > 0
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// Get decodes the cached value for key into out. It reports whether a value was found.
func (c *Cache) Get(ctx context.Context, key string, out any) bool {
	if !c.enabled() {
		return false
	}
	val, err := c.redis.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(val, out); err != nil {
		return false
	}
	return true
}

// Set stores val as JSON under key. Failures are ignored; the cache is best effort.
func (c *Cache) Set(ctx context.Context, key string, val any) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, c.key(key), data, c.ttl).Err()
}

// Invalidate removes every key under the cache prefix.
func (c *Cache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.redis.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete cache keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping checks Redis connectivity. A disabled cache is always healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil || c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}
