// Package admission implements the edge-level request admission filter: a
// fixed-window counter over a shared, TTL-expiring key-value store.
//
// The default (eventual) mode performs a separate read and write per request.
// Two concurrent requests for the same identity can both observe the same
// count, both pass the limit check, and both write the same value back, so
// the true count may transiently exceed the configured limit. Strict mode
// trades that away for an atomic increment where the backend supports one,
// at the cost that a denied request consumes a slot it was never granted.
package admission

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"edgegate/internal/counterstore"
)

// Outcome is the admission verdict for a single request.
type Outcome int

const (
	// Forward relays the request to the origin unchanged.
	Forward Outcome = iota
	// Reject stops the request at the edge.
	Reject
)

func (o Outcome) String() string {
	if o == Forward {
		return "forward"
	}
	return "reject"
}

// Reason classifies why a request was rejected (or, for store failures under
// a fail-open policy, why a forward was degraded).
type Reason string

const (
	ReasonNone            Reason = "none"
	ReasonMissingIdentity Reason = "missing_identity"
	ReasonRateLimited     Reason = "rate_limited"
	ReasonStoreError      Reason = "store_error"
)

// FailurePolicy decides the verdict when the counter store is unreachable.
type FailurePolicy string

const (
	FailClosed FailurePolicy = "fail_closed"
	FailOpen   FailurePolicy = "fail_open"
)

// Consistency selects how the counter is updated.
type Consistency string

const (
	// Eventual uses separate Get/Put calls. Denied requests never write.
	Eventual Consistency = "eventual"
	// Strict uses the backend's atomic increment. Denied requests count.
	Strict Consistency = "strict"
)

// Decision is the result of evaluating one request.
type Decision struct {
	Outcome Outcome
	Reason  Reason

	// Count is the window counter including this request. On a rate-limited
	// rejection it is the value the counter would have reached.
	Count int64

	// RetryAfter is the remaining duration of the current window. Set only
	// on rate-limited rejections.
	RetryAfter time.Duration
}

// Filter is the admission contract consumed by the HTTP middleware.
type Filter interface {
	// Decide evaluates a single request for the given client identity. The
	// returned error is non-nil only for store failures; the Decision is
	// still valid in that case and reflects the configured FailurePolicy.
	Decide(ctx context.Context, identity string) (Decision, error)
}

const (
	DefaultWindow       = 60 * time.Second
	DefaultLimit        = int64(20)
	DefaultStoreTimeout = 2 * time.Second
)

// FixedWindowFilter counts admitted requests per identity in fixed,
// non-overlapping windows. It holds no per-request state between calls; all
// coordination happens through the store.
type FixedWindowFilter struct {
	name          string
	store         counterstore.Store
	atomicStore   counterstore.AtomicStore // non-nil only in strict mode
	window        time.Duration
	limit         int64
	failurePolicy FailurePolicy
	consistency   Consistency
	storeTimeout  time.Duration
	nowFunc       func() time.Time
}

// Option configures a FixedWindowFilter.
type Option func(*FixedWindowFilter)

// WithClock sets a custom time source, used by tests to pin windows.
func WithClock(nowFunc func() time.Time) Option {
	return func(f *FixedWindowFilter) {
		f.nowFunc = nowFunc
	}
}

// WithFailurePolicy overrides the default fail-closed behaviour on store
// failures.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(f *FixedWindowFilter) {
		f.failurePolicy = p
	}
}

// WithConsistency selects eventual or strict counting.
func WithConsistency(c Consistency) Option {
	return func(f *FixedWindowFilter) {
		f.consistency = c
	}
}

// WithStoreTimeout bounds each store operation. Exceeding it is treated as a
// store failure.
func WithStoreTimeout(d time.Duration) Option {
	return func(f *FixedWindowFilter) {
		f.storeTimeout = d
	}
}

// NewFilter creates a fixed-window admission filter over the given store.
func NewFilter(name string, store counterstore.Store, window time.Duration, limit int64, opts ...Option) (*FixedWindowFilter, error) {
	if store == nil {
		return nil, fmt.Errorf("admission filter %q: store is required", name)
	}
	if window < time.Second {
		return nil, fmt.Errorf("admission filter %q: window must be at least one second, got %s", name, window)
	}
	f := &FixedWindowFilter{
		name:          name,
		store:         store,
		window:        window.Truncate(time.Second),
		limit:         limit,
		failurePolicy: FailClosed,
		consistency:   Eventual,
		storeTimeout:  DefaultStoreTimeout,
		nowFunc:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	switch f.failurePolicy {
	case FailClosed, FailOpen:
	default:
		return nil, fmt.Errorf("admission filter %q: unknown failure policy %q", name, f.failurePolicy)
	}
	switch f.consistency {
	case Eventual:
	case Strict:
		atomicStore, ok := store.(counterstore.AtomicStore)
		if !ok {
			return nil, fmt.Errorf("admission filter %q: strict consistency requires a store with atomic increment", name)
		}
		f.atomicStore = atomicStore
	default:
		return nil, fmt.Errorf("admission filter %q: unknown consistency mode %q", name, f.consistency)
	}
	log.Info().
		Str("filter", f.name).
		Dur("window", f.window).
		Int64("limit", f.limit).
		Str("failure_policy", string(f.failurePolicy)).
		Str("consistency", string(f.consistency)).
		Msg("Admission filter initialized")
	return f, nil
}

// Decide evaluates one request. An empty identity is a hard rejection with no
// store access; it is never treated as an unlimited allowance.
func (f *FixedWindowFilter) Decide(ctx context.Context, identity string) (Decision, error) {
	if identity == "" {
		return Decision{Outcome: Reject, Reason: ReasonMissingIdentity}, nil
	}

	now := f.nowFunc()
	windowSeconds := int64(f.window / time.Second)
	index := now.Unix() / windowSeconds
	key := identity + ":" + strconv.FormatInt(index, 10)
	retryAfter := time.Duration(windowSeconds-(now.Unix()-index*windowSeconds)) * time.Second

	opCtx, cancel := context.WithTimeout(ctx, f.storeTimeout)
	defer cancel()

	if f.consistency == Strict {
		return f.decideStrict(opCtx, identity, key, retryAfter)
	}

	count, _, err := f.store.Get(opCtx, key)
	if err != nil {
		return f.storeFailure(identity, fmt.Errorf("counter read for %q: %w", key, err))
	}

	newCount := count + 1
	if newCount > f.limit {
		log.Debug().Str("filter", f.name).Str("identity", identity).Int64("count", count).Msg("Rejected: window limit reached")
		return Decision{Outcome: Reject, Reason: ReasonRateLimited, Count: newCount, RetryAfter: retryAfter}, nil
	}

	// The record only ever reflects evaluated-and-admitted traffic: a
	// rejected request must not consume a slot it was denied.
	if err := f.store.Put(opCtx, key, newCount, f.window); err != nil {
		return f.storeFailure(identity, fmt.Errorf("counter write for %q: %w", key, err))
	}

	log.Debug().Str("filter", f.name).Str("identity", identity).Int64("count", newCount).Msg("Admitted")
	return Decision{Outcome: Forward, Reason: ReasonNone, Count: newCount}, nil
}

func (f *FixedWindowFilter) decideStrict(ctx context.Context, identity, key string, retryAfter time.Duration) (Decision, error) {
	count, err := f.atomicStore.IncrementWithTTL(ctx, key, f.window)
	if err != nil {
		return f.storeFailure(identity, fmt.Errorf("counter increment for %q: %w", key, err))
	}
	if count > f.limit {
		log.Debug().Str("filter", f.name).Str("identity", identity).Int64("count", count).Msg("Rejected: window limit reached")
		return Decision{Outcome: Reject, Reason: ReasonRateLimited, Count: count, RetryAfter: retryAfter}, nil
	}
	log.Debug().Str("filter", f.name).Str("identity", identity).Int64("count", count).Msg("Admitted")
	return Decision{Outcome: Forward, Reason: ReasonNone, Count: count}, nil
}

func (f *FixedWindowFilter) storeFailure(identity string, err error) (Decision, error) {
	if f.failurePolicy == FailOpen {
		log.Warn().Err(err).Str("filter", f.name).Str("identity", identity).Msg("Counter store failure, admitting (fail-open)")
		return Decision{Outcome: Forward, Reason: ReasonStoreError}, err
	}
	log.Warn().Err(err).Str("filter", f.name).Str("identity", identity).Msg("Counter store failure, rejecting (fail-closed)")
	return Decision{Outcome: Reject, Reason: ReasonStoreError}, err
}
