package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/demoscope-io/demoscope/internal/aggregation"
)

// cacheKeyPrefix namespaces demoscope keys in a shared Redis instance.
const cacheKeyPrefix = "demoscope:"

var _ aggregation.Cache = (*RedisChartCache)(nil)

// RedisChartCache is a Redis-backed implementation of the chart cache.
// This is the production implementation for deployments where multiple
// instances share cached aggregates. Values are stored as JSON.
type RedisChartCache struct {
	client *redis.Client
}

// NewRedisClient creates a go-redis client from cache configuration and
// verifies connectivity. Returns nil (not an error) when no Redis URL is
// configured, so callers can fall back to the in-memory cache.
func NewRedisClient(cfg *CacheConfig) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// NewRedisChartCache creates a chart cache over an existing Redis client.
// The client lifecycle is managed by the caller.
func NewRedisChartCache(client *redis.Client) *RedisChartCache {
	return &RedisChartCache{client: client}
}

// Get returns the cached chart data for key, with false on a miss.
func (c *RedisChartCache) Get(ctx context.Context, key string) (*aggregation.ChartData, bool, error) {
	payload, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var data aggregation.ChartData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, false, fmt.Errorf("decode cached chart data: %w", err)
	}

	return &data, true, nil
}

// Set stores chart data under key with the given expiry.
func (c *RedisChartCache) Set(ctx context.Context, key string, value *aggregation.ChartData, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode chart data: %w", err)
	}

	if err := c.client.Set(ctx, cacheKeyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (c *RedisChartCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, cacheKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}
