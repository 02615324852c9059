// Package cache provides an optional Redis-backed cache for lookup
// responses. A nil *Redis is a valid no-op cache, so callers never branch
// on whether caching is configured.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Redis caches serialized lookup responses with a TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the given address. Returns nil (a no-op cache) when
// addr is empty.
func NewRedis(addr string, ttl time.Duration) *Redis {
	if addr == "" {
		return nil
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

// Get returns the cached payload for key, or false on miss. Transport
// errors are logged and treated as misses so a flaky cache never breaks a
// lookup.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			zap.L().Warn("cache: get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return val, true
}

// Set stores the payload under key for the configured TTL.
func (c *Redis) Set(ctx context.Context, key string, val []byte) error {
	if c == nil {
		return nil
	}
	if err := c.client.Set(ctx, key, val, c.ttl).Err(); err != nil {
		return eris.Wrapf(err, "cache: set %s", key)
	}
	return nil
}

// Close releases the client connection.
func (c *Redis) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
