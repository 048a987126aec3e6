package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bizfinda/backend/internal/logger"
)

const searchVersionKey = "search:version"

// Cache is a thin Redis wrapper for search results. A nil *Cache is a
// valid no-op cache, so callers need no branching when Redis is down.
type Cache struct {
	client *redis.Client
	log    *logger.Logger
}

func New(addr string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Cache{
		client: client,
		log:    logger.Default().WithComponent("cache"),
	}, nil
}

// Client exposes the underlying Redis client for health probing.
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if c == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.log.Warn(ctx, "cache get failed", map[string]interface{}{
			"key": key, "error": err.Error(),
		})
		return "", false
	}
	return val, true
}

func (c *Cache) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.log.Warn(ctx, "cache set failed", map[string]interface{}{
			"key": key, "error": err.Error(),
		})
	}
}

// SearchVersion namespaces every search cache key. Bumping the version
// on any business mutation invalidates all cached pages at once without
// scanning for keys.
func (c *Cache) SearchVersion(ctx context.Context) int64 {
	if c == nil {
		return 0
	}
	version, err := c.client.Get(ctx, searchVersionKey).Int64()
	if err != nil {
		return 0
	}
	return version
}

func (c *Cache) InvalidateSearch(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Incr(ctx, searchVersionKey).Err(); err != nil {
		c.log.Warn(ctx, "search invalidation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
