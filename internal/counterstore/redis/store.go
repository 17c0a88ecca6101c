// Package redis provides the Redis-backed counter store used in production
// deployments where multiple gateway instances share one counter space.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store implements counterstore.Store and counterstore.AtomicStore on top of
// a shared Redis instance. Get/Put are plain GET and SET EX; the atomic path
// runs a small Lua script so INCR and EXPIRE execute as one operation.
type Store struct {
	client *redis.Client
	script *redis.Script
}

// New creates a Redis counter store over an already-connected client.
func New(client *redis.Client) *Store {
	return &Store{
		client: client,
		script: incrementScript,
	}
}

// Get implements counterstore.Store.
func (s *Store) Get(ctx context.Context, key string) (int64, bool, error) {
	value, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, true, nil
}

// Put implements counterstore.Store. SET with an expiry refreshes the TTL on
// every write, so the record expires WindowSeconds after its last write.
func (s *Store) Put(ctx context.Context, key string, value int64, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// IncrementWithTTL implements counterstore.AtomicStore.
func (s *Store) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	expirySeconds := int64(ttl.Seconds())
	if expirySeconds < 1 {
		expirySeconds = 1
	}

	result, err := s.script.Run(ctx, s.client, []string{key}, expirySeconds).Result()
	if err != nil {
		return 0, fmt.Errorf("redis increment script for %q: %w", key, err)
	}
	count, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected script result type: %T", result)
	}
	return count, nil
}
