package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisCache keeps every dashboard of a business in one hash so a single
// DEL drops them all.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(businessID uuid.UUID) string {
	return fmt.Sprintf("metrics:%s", businessID)
}

func (c *RedisCache) Get(ctx context.Context, businessID uuid.UUID, key string) (*Dashboard, error) {
	data, err := c.client.HGet(ctx, cacheKey(businessID), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading cached dashboard: %w", err)
	}

	var d Dashboard
	if err := json.Unmarshal(data, &d); err != nil {
		_ = c.client.HDel(ctx, cacheKey(businessID), key)
		return nil, fmt.Errorf("decoding cached dashboard: %w", err)
	}

	return &d, nil
}

func (c *RedisCache) Set(ctx context.Context, businessID uuid.UUID, key string, d *Dashboard) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding dashboard: %w", err)
	}

	hash := cacheKey(businessID)

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, hash, key, data)
	pipe.Expire(ctx, hash, c.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("caching dashboard: %w", err)
	}

	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, businessID uuid.UUID) error {
	if err := c.client.Del(ctx, cacheKey(businessID)).Err(); err != nil {
		return fmt.Errorf("invalidating dashboards: %w", err)
	}

	return nil
}

// NopCache never stores anything. It is used when Redis is not configured.
type NopCache struct{}

func (NopCache) Get(context.Context, uuid.UUID, string) (*Dashboard, error) { return nil, nil }
func (NopCache) Set(context.Context, uuid.UUID, string, *Dashboard) error   { return nil }
func (NopCache) Invalidate(context.Context, uuid.UUID) error                { return nil }
