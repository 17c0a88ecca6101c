// Package counterstore defines the shared counter store contract used by the
// admission filter. The store is the only shared mutable resource in the
// system: every filter instance has equal, unmediated read/write access, and
// consistency is whatever the backend itself provides.
package counterstore

import (
	"context"
	"time"
)

// Store is the minimal key-value contract the admission filter needs.
// Backends attach expiry at write time; the filter never sweeps.
type Store interface {
	// Get returns the counter value stored under key. A missing (or expired)
	// key is reported as (0, false, nil), not as an error.
	Get(ctx context.Context, key string) (value int64, exists bool, err error)

	// Put writes value under key with the given TTL, measured from the moment
	// of the write. A later Put for the same key refreshes the TTL.
	Put(ctx context.Context, key string, value int64, ttl time.Duration) error
}

// AtomicStore is implemented by backends that support an atomic
// increment-with-expiry. Filters configured for strict consistency require
// it; the plain Get/Put path stays intentionally non-atomic.
type AtomicStore interface {
	Store

	// IncrementWithTTL atomically increments the counter under key and
	// returns the new value. The TTL is attached when the key is created.
	IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
