package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores resolved token -> user mappings in Redis so the identity
// provider is not called on every request. Entries expire; the provider
// remains the source of truth.
type Cache struct {
	client *redis.Client
}

// NewCache creates a new Redis-backed session cache.
func NewCache(addr string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password
		DB:       0,  // default DB
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// Get returns the cached user for a token, or nil when not cached.
func (c *Cache) Get(ctx context.Context, token string) (*User, error) {
	raw, err := c.client.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return nil, nil // Not cached
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("invalid session payload: %w", err)
	}
	return &user, nil
}

// Set caches the user for a token with the given TTL.
func (c *Cache) Set(ctx context.Context, token string, user *User, ttl time.Duration) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := c.client.Set(ctx, sessionKey(token), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache session: %w", err)
	}
	return nil
}

// Delete drops a token's cache entry, used on sign-out.
func (c *Cache) Delete(ctx context.Context, token string) error {
	if err := c.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
