package redis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a version-keyed JSON cache. Listings are cached under a key that
// embeds a per-project version counter; bumping the counter invalidates every
// cached page at once without deleting keys.
type Cache struct {
	client *redis.Client
}

// New connects to Redis. When Redis is unreachable the service keeps running
// without a cache: every method on a clientless Cache is a miss or a no-op.
func New(address string) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr: address,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		log.Println("Redis not available. Running without cache.")
		return &Cache{}
	}

	log.Println("Redis connected successfully.")
	return &Cache{client: client}
}

// NewWithClient wraps an existing client (used by tests).
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get unmarshals the cached value into dest. Returns false on miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores value as JSON with a TTL.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

// GetVersion returns the current counter for a version key, 0 if unset.
func (c *Cache) GetVersion(ctx context.Context, key string) uint64 {
	if c.client == nil {
		return 0
	}
	v, err := c.client.Get(ctx, key).Uint64()
	if err != nil {
		return 0
	}
	return v
}

// IncrementVersion bumps a version key, invalidating all entries cached under
// the previous version.
func (c *Cache) IncrementVersion(ctx context.Context, key string) {
	if c.client == nil {
		return
	}
	if err := c.client.Incr(ctx, key).Err(); err != nil {
		log.Printf("Failed to bump cache version %s: %v", key, err)
	}
}

func (c *Cache) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
