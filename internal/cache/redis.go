package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a Redis-backed cache for deployments running more than one
// service process, where invalidation must be visible across instances.
// Keys are laid out as "<prefix><partition>:<key>".
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// RedisConfig holds configuration for the Redis cache.
type RedisConfig struct {
	URL       string // Redis connection URL (e.g., "redis://localhost:6379")
	TTL       int    // TTL in seconds (0 = no expiration, the default)
	KeyPrefix string // Prefix for all keys (default: "tms:")
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewRedisCacheFromClient(client, cfg.TTL, cfg.KeyPrefix), nil
}

// NewRedisCacheFromClient creates a RedisCache from an existing client.
func NewRedisCacheFromClient(client *redis.Client, ttlSeconds int, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = "tms:"
	}

	ttl := time.Duration(ttlSeconds) * time.Second
	if ttlSeconds <= 0 {
		ttl = 0
	}

	return &RedisCache{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}
}

func (c *RedisCache) fullKey(partition, key string) string {
	return c.keyPrefix + partition + ":" + key
}

// Get retrieves a value from Redis. Errors are reported as misses.
func (c *RedisCache) Get(partition, key string) (string, bool) {
	ctx := context.Background()
	val, err := c.client.Get(ctx, c.fullKey(partition, key)).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores a value in Redis.
func (c *RedisCache) Set(partition, key, value string) error {
	ctx := context.Background()
	return c.client.Set(ctx, c.fullKey(partition, key), value, c.ttl).Err()
}

// Delete removes a single entry.
func (c *RedisCache) Delete(partition, key string) error {
	ctx := context.Background()
	return c.client.Del(ctx, c.fullKey(partition, key)).Err()
}

// Clear removes every entry in the partition by scanning its key prefix.
func (c *RedisCache) Clear(partition string) error {
	ctx := context.Background()
	iter := c.client.Scan(ctx, 0, c.keyPrefix+partition+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
