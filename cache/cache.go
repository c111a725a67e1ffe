// Package cache is the opaque key/value store shortcutting repeat
// stream requests. A missing or failing backend behaves as a miss.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// New returns a Redis-backed cache, or a no-op one when no URL is
// configured or the URL does not parse.
func New(redisURL string) Cache {
	if redisURL == "" {
		return Noop{}
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Warn("Invalid REDIS_URL, caching disabled", "error", err)
		return Noop{}
	}
	return &Redis{client: redis.NewClient(opts)}
}

type Redis struct {
	client *redis.Client
}

func (c *Redis) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("Cache get failed", "key", key, "error", err)
		}
		return "", false
	}
	return val, true
}

func (c *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		slog.Warn("Cache set failed", "key", key, "error", err)
	}
}

type Noop struct{}

func (Noop) Get(context.Context, string) (string, bool)           { return "", false }
func (Noop) Set(context.Context, string, string, time.Duration)   {}
