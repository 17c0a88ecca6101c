// Package inmemory provides a process-local counter store, intended for
// tests and single-instance deployments without a networked backend.
package inmemory

import (
	"context"
	"sync"
	"time"
)

// Store is a mutex-guarded map with per-key expiry. Expired entries are
// dropped lazily on read and, when a sweep interval is configured, by a
// background janitor; window-indexed keys are rarely read again once their
// window has passed.
type Store struct {
	mu         sync.Mutex
	entries    map[string]entry
	nowFunc    func() time.Time
	sweepEvery time.Duration
	stop       chan struct{}
	once       sync.Once
}

type entry struct {
	value     int64
	expiresAt time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets a custom time source for expiry checks.
func WithClock(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = nowFunc
	}
}

// WithSweepInterval starts a background janitor that removes expired entries
// every interval. Stop it with Close.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *Store) {
		s.sweepEvery = interval
	}
}

// New creates an empty in-memory counter store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]entry),
		nowFunc: time.Now,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sweepEvery > 0 {
		go s.janitor(s.sweepEvery)
	}
	return s
}

// Get implements counterstore.Store.
func (s *Store) Get(ctx context.Context, key string) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return 0, false, nil
	}
	if !s.nowFunc().Before(ent.expiresAt) {
		delete(s.entries, key)
		return 0, false, nil
	}
	return ent.value, true, nil
}

// Put implements counterstore.Store.
func (s *Store) Put(ctx context.Context, key string, value int64, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{value: value, expiresAt: s.nowFunc().Add(ttl)}
	return nil
}

// IncrementWithTTL implements counterstore.AtomicStore. The mutex makes the
// read-increment-write sequence atomic within the process.
func (s *Store) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	var value int64
	if ent, ok := s.entries[key]; ok && now.Before(ent.expiresAt) {
		value = ent.value
		// Keep the expiry from the key's creation; only a fresh key gets a
		// new TTL, matching the networked backends' increment semantics.
		s.entries[key] = entry{value: value + 1, expiresAt: ent.expiresAt}
		return value + 1, nil
	}
	s.entries[key] = entry{value: 1, expiresAt: now.Add(ttl)}
	return 1, nil
}

// Sweep removes all expired entries.
func (s *Store) Sweep() {
	now := s.nowFunc()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if !now.Before(ent.expiresAt) {
			delete(s.entries, k)
		}
	}
}

// Len reports the number of live and not-yet-swept entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the background janitor, if one was started.
func (s *Store) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *Store) janitor(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
