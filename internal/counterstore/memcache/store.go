// Package csmemcache provides a Memcached-backed counter store.
package csmemcache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"edgegate/internal/memcacheiface"
)

// Store implements counterstore.Store and counterstore.AtomicStore over a
// Memcached cluster. Counter values are stored as their decimal string form,
// which is what Memcached's Increment operates on.
type Store struct {
	client memcacheiface.Client
}

// New creates a Memcached counter store.
func New(client memcacheiface.Client) *Store {
	return &Store{client: client}
}

// Get implements counterstore.Store.
func (s *Store) Get(ctx context.Context, key string) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	item, err := s.client.Get(key)
	if err == memcache.ErrCacheMiss {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("memcache get %q: %w", key, err)
	}
	value, err := strconv.ParseInt(string(item.Value), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("memcache value for %q is not a counter: %w", key, err)
	}
	return value, true, nil
}

// Put implements counterstore.Store.
func (s *Store) Put(ctx context.Context, key string, value int64, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	item := &memcache.Item{
		Key:        key,
		Value:      []byte(strconv.FormatInt(value, 10)),
		Expiration: expirySeconds(ttl),
	}
	if err := s.client.Set(item); err != nil {
		return fmt.Errorf("memcache set %q: %w", key, err)
	}
	return nil
}

// IncrementWithTTL implements counterstore.AtomicStore. Add sets the key with
// its expiry if it does not exist yet; on ErrNotStored the key already exists
// and Increment bumps it without touching the original TTL, so the window is
// defined by the first write.
func (s *Store) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	item := &memcache.Item{
		Key:        key,
		Value:      []byte("1"),
		Expiration: expirySeconds(ttl),
	}
	err := s.client.Add(item)
	if err == nil {
		return 1, nil
	}
	if err != memcache.ErrNotStored {
		return 0, fmt.Errorf("memcache add %q: %w", key, err)
	}

	value, err := s.client.Increment(key, 1)
	if err != nil {
		return 0, fmt.Errorf("memcache increment %q: %w", key, err)
	}
	return int64(value), nil
}

func expirySeconds(ttl time.Duration) int32 {
	seconds := int32(ttl.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
