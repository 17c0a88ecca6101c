// Package redistest provides helpers for integration tests that need a live
// Redis instance.
package redistest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// GetRedisAddress returns the Redis address, defaulting to "localhost:6379".
// REDIS_ADDR overrides; under CI=true the docker-compose hostname is used.
func GetRedisAddress() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	if os.Getenv("CI") == "true" {
		return "redis:6379"
	}
	return "localhost:6379"
}

// SetupRedisClient returns a Redis client for integration tests, skipping the
// test when no Redis is reachable so unit runs stay green without one.
func SetupRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	redisAddr := GetRedisAddress()

	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		t.Skipf("Redis not reachable at %s, skipping integration test: %v", redisAddr, err)
	}
	return client
}

// CleanupRedisKeys deletes all keys matching "prefix:*".
func CleanupRedisKeys(t *testing.T, client *redis.Client, prefix string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	scanPattern := fmt.Sprintf("%s:*", prefix)
	var cursor uint64
	for {
		keys, nextCursor, err := client.Scan(ctx, cursor, scanPattern, 50).Result()
		if err != nil {
			t.Fatalf("Failed to SCAN for keys with pattern %q: %v", scanPattern, err)
		}
		if len(keys) > 0 {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				t.Errorf("Failed to DEL keys during cleanup (pattern %q): %v", scanPattern, err)
			}
		}
		if nextCursor == 0 {
			return
		}
		cursor = nextCursor
	}
}
