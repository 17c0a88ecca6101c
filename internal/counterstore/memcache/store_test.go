package csmemcache_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"edgegate/internal/counterstore"
	csmemcache "edgegate/internal/counterstore/memcache"
	"edgegate/internal/memcacheiface"
)

var (
	_ counterstore.Store       = (*csmemcache.Store)(nil)
	_ counterstore.AtomicStore = (*csmemcache.Store)(nil)
)

// fakeClient is an in-memory memcacheiface.Client. Expirations are recorded
// but never enforced; TTL behaviour is covered by the integration test.
type fakeClient struct {
	items   map[string]*memcache.Item
	getErr  error
	setErr  error
	addErr  error
	incrErr error
}

var _ memcacheiface.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{items: make(map[string]*memcache.Item)}
}

func (c *fakeClient) Get(key string) (*memcache.Item, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	item, ok := c.items[key]
	if !ok {
		return nil, memcache.ErrCacheMiss
	}
	return item, nil
}

func (c *fakeClient) Set(item *memcache.Item) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.items[item.Key] = item
	return nil
}

func (c *fakeClient) Add(item *memcache.Item) error {
	if c.addErr != nil {
		return c.addErr
	}
	if _, ok := c.items[item.Key]; ok {
		return memcache.ErrNotStored
	}
	c.items[item.Key] = item
	return nil
}

func (c *fakeClient) Increment(key string, delta uint64) (uint64, error) {
	if c.incrErr != nil {
		return 0, c.incrErr
	}
	item, ok := c.items[key]
	if !ok {
		return 0, memcache.ErrCacheMiss
	}
	value, err := strconv.ParseUint(string(item.Value), 10, 64)
	if err != nil {
		return 0, errors.New("incr/decr on non-numeric value")
	}
	value += delta
	item.Value = []byte(strconv.FormatUint(value, 10))
	return value, nil
}

func TestGet(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingKeyIsNotAnError", func(t *testing.T) {
		store := csmemcache.New(newFakeClient())

		value, exists, err := store.Get(ctx, "1.2.3.4:100")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if exists || value != 0 {
			t.Fatalf("Got (%d, %v), want (0, false)", value, exists)
		}
	})

	t.Run("ExistingKey", func(t *testing.T) {
		client := newFakeClient()
		client.items["1.2.3.4:100"] = &memcache.Item{Key: "1.2.3.4:100", Value: []byte("9")}
		store := csmemcache.New(client)

		value, exists, err := store.Get(ctx, "1.2.3.4:100")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !exists || value != 9 {
			t.Fatalf("Got (%d, %v), want (9, true)", value, exists)
		}
	})

	t.Run("NonNumericValue", func(t *testing.T) {
		client := newFakeClient()
		client.items["k"] = &memcache.Item{Key: "k", Value: []byte("garbage")}
		store := csmemcache.New(client)

		_, _, err := store.Get(ctx, "k")
		if err == nil {
			t.Fatal("Expected an error for a non-numeric value, got nil")
		}
	})

	t.Run("ClientError", func(t *testing.T) {
		client := newFakeClient()
		client.getErr = errors.New("connection refused")
		store := csmemcache.New(client)

		_, _, err := store.Get(ctx, "k")
		if !errors.Is(err, client.getErr) {
			t.Fatalf("Expected wrapped client error, got %v", err)
		}
	})
}

func TestPut(t *testing.T) {
	ctx := context.Background()

	t.Run("StoresDecimalStringWithExpiry", func(t *testing.T) {
		client := newFakeClient()
		store := csmemcache.New(client)

		if err := store.Put(ctx, "1.2.3.4:100", 4, 60*time.Second); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		item, ok := client.items["1.2.3.4:100"]
		if !ok {
			t.Fatal("Key not written")
		}
		if string(item.Value) != "4" {
			t.Fatalf("Stored value = %q, want \"4\"", item.Value)
		}
		if item.Expiration != 60 {
			t.Fatalf("Expiration = %d, want 60", item.Expiration)
		}
	})

	t.Run("SubSecondTTLRoundsUp", func(t *testing.T) {
		client := newFakeClient()
		store := csmemcache.New(client)

		if err := store.Put(ctx, "k", 1, 100*time.Millisecond); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if client.items["k"].Expiration != 1 {
			t.Fatalf("Expiration = %d, want 1", client.items["k"].Expiration)
		}
	})

	t.Run("ClientError", func(t *testing.T) {
		client := newFakeClient()
		client.setErr = errors.New("connection refused")
		store := csmemcache.New(client)

		err := store.Put(ctx, "k", 1, time.Minute)
		if !errors.Is(err, client.setErr) {
			t.Fatalf("Expected wrapped client error, got %v", err)
		}
	})
}

func TestIncrementWithTTL(t *testing.T) {
	ctx := context.Background()

	t.Run("FirstIncrementAdds", func(t *testing.T) {
		client := newFakeClient()
		store := csmemcache.New(client)

		count, err := store.IncrementWithTTL(ctx, "k", time.Minute)
		if err != nil {
			t.Fatalf("IncrementWithTTL failed: %v", err)
		}
		if count != 1 {
			t.Fatalf("Count = %d, want 1", count)
		}
		if client.items["k"].Expiration != 60 {
			t.Fatalf("Expiration = %d, want 60", client.items["k"].Expiration)
		}
	})

	t.Run("SubsequentIncrementsBump", func(t *testing.T) {
		client := newFakeClient()
		store := csmemcache.New(client)

		for want := int64(1); want <= 3; want++ {
			count, err := store.IncrementWithTTL(ctx, "k", time.Minute)
			if err != nil {
				t.Fatalf("IncrementWithTTL failed: %v", err)
			}
			if count != want {
				t.Fatalf("Count = %d, want %d", count, want)
			}
		}
	})

	t.Run("IncrementError", func(t *testing.T) {
		client := newFakeClient()
		client.items["k"] = &memcache.Item{Key: "k", Value: []byte("1")}
		client.incrErr = errors.New("connection refused")
		store := csmemcache.New(client)

		_, err := store.IncrementWithTTL(ctx, "k", time.Minute)
		if !errors.Is(err, client.incrErr) {
			t.Fatalf("Expected wrapped client error, got %v", err)
		}
	})

	t.Run("AddError", func(t *testing.T) {
		client := newFakeClient()
		client.addErr = errors.New("connection refused")
		store := csmemcache.New(client)

		_, err := store.IncrementWithTTL(ctx, "k", time.Minute)
		if !errors.Is(err, client.addErr) {
			t.Fatalf("Expected wrapped client error, got %v", err)
		}
	})
}

func TestContextCancellation(t *testing.T) {
	store := csmemcache.New(newFakeClient())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := store.Get(ctx, "k"); err != context.Canceled {
		t.Fatalf("Get with canceled context: err = %v, want context.Canceled", err)
	}
	if err := store.Put(ctx, "k", 1, time.Minute); err != context.Canceled {
		t.Fatalf("Put with canceled context: err = %v, want context.Canceled", err)
	}
	if _, err := store.IncrementWithTTL(ctx, "k", time.Minute); err != context.Canceled {
		t.Fatalf("IncrementWithTTL with canceled context: err = %v, want context.Canceled", err)
	}
}
