package pool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/example/roadside-dispatch/internal/models"
)

// RedisPool draws a uniformly random template from a redis set kept
// current by the template consumer. A fallback pool covers redis
// outages and an empty set.
type RedisPool struct {
	client   *redis.Client
	key      string
	fallback CandidatePool
}

func NewRedisPool(addr, password, key string, fallback CandidatePool) *RedisPool {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisPool{client: c, key: key, fallback: fallback}
}

func (p *RedisPool) Next(ctx context.Context) (models.RequestTemplate, error) {
	raw, err := p.client.SRandMember(ctx, p.key).Result()
	if err != nil || raw == "" {
		if p.fallback != nil {
			return p.fallback.Next(ctx)
		}
		return models.RequestTemplate{}, fmt.Errorf("redis pool: %w", ErrPoolEmpty)
	}
	var t models.RequestTemplate
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		if p.fallback != nil {
			return p.fallback.Next(ctx)
		}
		return models.RequestTemplate{}, fmt.Errorf("redis pool: bad template: %w", err)
	}
	return t, nil
}
