// Package memcachetest provides helpers for integration tests that need a
// live Memcached instance.
package memcachetest

import (
	"os"
	"testing"

	"github.com/bradfitz/gomemcache/memcache"
)

// GetMemcachedAddress returns the Memcached address, defaulting to
// "localhost:11211". MEMCACHED_ADDR overrides; under CI=true the
// docker-compose hostname is used.
func GetMemcachedAddress() string {
	if addr := os.Getenv("MEMCACHED_ADDR"); addr != "" {
		return addr
	}
	if os.Getenv("CI") == "true" {
		return "memcached:11211"
	}
	return "localhost:11211"
}

// SetupMemcachedClient returns a Memcached client for integration tests,
// skipping the test when no instance is reachable. Memcached has no ping, so
// reachability is probed with a throwaway item.
func SetupMemcachedClient(t *testing.T) *memcache.Client {
	t.Helper()
	memcachedAddr := GetMemcachedAddress()

	mc := memcache.New(memcachedAddr)
	probe := &memcache.Item{Key: "edgegate_test_probe", Value: []byte("1"), Expiration: 10}
	if err := mc.Set(probe); err != nil {
		t.Skipf("Memcached not reachable at %s, skipping integration test: %v", memcachedAddr, err)
	}
	_ = mc.Delete(probe.Key)
	return mc
}

// CleanupMemcachedKeys deletes the given keys, best effort.
func CleanupMemcachedKeys(t *testing.T, client *memcache.Client, keys []string) {
	t.Helper()
	for _, key := range keys {
		if err := client.Delete(key); err != nil && err != memcache.ErrCacheMiss {
			t.Logf("Warning: failed to delete Memcached key %q: %v", key, err)
		}
	}
}
