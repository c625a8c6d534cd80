// Package cache caches derived project statistics.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/sannu-sannu/sannu-server/internal/models"
)

// DefaultStatsTTL bounds how stale cached statistics may get.
const DefaultStatsTTL = 5 * time.Minute

// StatsCache stores project statistics between reads.
type StatsCache interface {
	Get(ctx context.Context, projectID uuid.UUID) (*models.ProjectStatistics, bool, error)
	Set(ctx context.Context, stats *models.ProjectStatistics) error
	Invalidate(ctx context.Context, projectID uuid.UUID) error
}

// RedisStatsCache keeps statistics as JSON strings with a TTL.
type RedisStatsCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStatsCache creates a cache on client
func NewRedisStatsCache(client *redis.Client, prefix string, ttl time.Duration) *RedisStatsCache {
	if prefix == "" {
		prefix = "sannu:project:"
	}
	if ttl <= 0 {
		ttl = DefaultStatsTTL
	}
	return &RedisStatsCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisStatsCache) key(projectID uuid.UUID) string {
	return c.prefix + projectID.String() + ":stats"
}

// Get returns the cached statistics. A miss is not an error.
func (c *RedisStatsCache) Get(ctx context.Context, projectID uuid.UUID) (*models.ProjectStatistics, bool, error) {
	data, err := c.client.Get(ctx, c.key(projectID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var stats models.ProjectStatistics
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, false, fmt.Errorf("decode statistics: %w", err)
	}
	return &stats, true, nil
}

// Set stores stats
func (c *RedisStatsCache) Set(ctx context.Context, stats *models.ProjectStatistics) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	if err := c.client.Set(ctx, c.key(stats.ProjectID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops the cached entry
func (c *RedisStatsCache) Invalidate(ctx context.Context, projectID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(projectID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// NopStatsCache never stores anything.
type NopStatsCache struct{}

func (NopStatsCache) Get(context.Context, uuid.UUID) (*models.ProjectStatistics, bool, error) {
	return nil, false, nil
}

func (NopStatsCache) Set(context.Context, *models.ProjectStatistics) error { return nil }

func (NopStatsCache) Invalidate(context.Context, uuid.UUID) error { return nil }
