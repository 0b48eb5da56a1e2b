package route

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/roadside-dispatch/internal/models"
)

// RedisCache shares resolved routes across processes. Misses on any
// redis error; routing still works without the cache.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	ctx    context.Context
}

func NewRedisCache(addr, password, prefix string, ttl time.Duration) *RedisCache {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisCache{client: c, prefix: prefix, ttl: ttl, ctx: context.Background()}
}

func (c *RedisCache) key(a, b models.Coord) string {
	return c.prefix + ":" + cacheKey(a, b)
}

func (c *RedisCache) Get(from, to models.Coord) (models.RouteResult, bool) {
	b, err := c.client.Get(c.ctx, c.key(from, to)).Bytes()
	if err != nil {
		return models.RouteResult{}, false
	}
	var r models.RouteResult
	if err := json.Unmarshal(b, &r); err != nil {
		return models.RouteResult{}, false
	}
	return r, true
}

func (c *RedisCache) Set(from, to models.Coord, r models.RouteResult) {
	b, err := json.Marshal(r)
	if err != nil {
		return
	}
	_ = c.client.Set(c.ctx, c.key(from, to), b, c.ttl).Err()
}
