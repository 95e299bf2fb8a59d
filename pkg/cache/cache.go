package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iamgideonidoko/persona/internal/models"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(addr, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		client: client,
		ttl:    ttl,
	}, nil
}

// GetProfile retrieves a cached compiled profile by ID. A cache miss
// returns (nil, nil).
func (c *Cache) GetProfile(ctx context.Context, profileID string) (*models.FingerprintProfile, error) {
	key := fmt.Sprintf("profile:%s", profileID)
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	var profile models.FingerprintProfile
	if err := json.Unmarshal([]byte(val), &profile); err != nil {
		return nil, fmt.Errorf("cache decode error: %w", err)
	}
	return &profile, nil
}

// SetProfile caches a profile's current state.
func (c *Cache) SetProfile(ctx context.Context, profile *models.FingerprintProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("cache encode error: %w", err)
	}
	key := fmt.Sprintf("profile:%s", profile.ID)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// InvalidateProfile drops a cached profile after a mutation.
func (c *Cache) InvalidateProfile(ctx context.Context, profileID string) error {
	return c.client.Del(ctx, fmt.Sprintf("profile:%s", profileID)).Err()
}

// SetCatalogStamp records the catalog version currently loaded so replicas
// can notice an import happened elsewhere.
func (c *Cache) SetCatalogStamp(ctx context.Context, version string) error {
	return c.client.Set(ctx, "catalog:stamp", version, 0).Err()
}

// GetCatalogStamp returns the last recorded catalog version ("" when unset).
func (c *Cache) GetCatalogStamp(ctx context.Context) (string, error) {
	val, err := c.client.Get(ctx, "catalog:stamp").Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("cache get error: %w", err)
	}
	return val, nil
}

// CheckRateLimit implements token bucket rate limiting.
func (c *Cache) CheckRateLimit(ctx context.Context, identifier string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf("rl:%s", identifier)

	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check error: %w", err)
	}

	count := incr.Val()
	return count <= int64(limit), nil
}

// IncrementMetric increments a counter metric.
func (c *Cache) IncrementMetric(ctx context.Context, metric string) error {
	key := fmt.Sprintf("metric:%s", metric)
	return c.client.Incr(ctx, key).Err()
}

// GetMetric retrieves a metric value.
func (c *Cache) GetMetric(ctx context.Context, metric string) (int64, error) {
	key := fmt.Sprintf("metric:%s", metric)
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var count int64
	if _, err := fmt.Sscanf(val, "%d", &count); err != nil {
		return 0, err
	}
	return count, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
