// Package cache is the response cache used to avoid repeating identical
// upstream queries within a TTL window. It is backed by Redis (or the
// in-process stand-in the session starts when Redis is disabled).
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"obsidion/internal/metrics"
)

// Default TTLs per use case
const (
	ServerStatusTTL = 300 * time.Second
	// NoExpiry keeps an entry until it is overwritten or deleted.
	NoExpiry time.Duration = 0
)

// Cache is a key/value store with per-entry expiry. Last writer wins.
type Cache struct {
	client  *redis.Client
	logger  *log.Logger
	metrics *metrics.Metrics
}

// New wraps a connected Redis client. logger and m may be nil.
func New(client *redis.Client, logger *log.Logger, m *metrics.Metrics) *Cache {
	return &Cache{client: client, logger: logger, metrics: m}
}

// Get returns the stored payload and true, or false when the key is absent or expired
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, true, nil
}

// Put stores value under key with a fresh expiry. A zero ttl means no expiry.
func (c *Cache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Through returns the cached value for key when present, otherwise calls
// fetch and stores its result for ttl. A fetch error is returned as is and
// nothing is written. Cache transport errors never fail the call: a failed
// read behaves as a miss and a failed write is only logged.
func Through[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	raw, ok, err := c.Get(ctx, key)
	switch {
	case err != nil:
		c.metrics.CacheError()
		c.warnf("cache read failed, fetching upstream: %v", err)
	case ok:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			c.metrics.CacheHit()
			return v, nil
		}
		c.warnf("discarding undecodable cache entry %s", key)
	default:
		c.metrics.CacheMiss()
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		c.warnf("not caching %s: %v", key, err)
		return v, nil
	}
	if err := c.Put(ctx, key, encoded, ttl); err != nil {
		c.warnf("cache write failed: %v", err)
	}
	return v, nil
}

func (c *Cache) warnf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warnf(format, args...)
	}
}
