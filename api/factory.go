package api

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"edgegate/config"
	"edgegate/internal/admission"
	"edgegate/internal/counterstore"
	"edgegate/internal/counterstore/inmemory"
	csmemcache "edgegate/internal/counterstore/memcache"
	redisstore "edgegate/internal/counterstore/redis"
	"edgegate/internal/memcacheiface"
)

// BackendClients holds initialized backend client instances shared by all
// filters that use the same backend type.
type BackendClients struct {
	RedisClient    *redis.Client
	MemcacheClient memcacheiface.Client
}

// Factory creates admission filters from configuration.
type Factory struct{}

// NewFactory creates a new Factory instance.
func NewFactory() *Factory {
	return &Factory{}
}

// CreateFilter builds the counter store selected by the config and wraps it
// in a fixed-window admission filter.
func (f *Factory) CreateFilter(cfg config.FilterConfig, clients BackendClients) (admission.Filter, error) {
	store, err := f.createStore(cfg, clients)
	if err != nil {
		return nil, err
	}

	opts := []admission.Option{
		admission.WithStoreTimeout(cfg.Policy.StoreTimeout()),
	}
	if p := cfg.Policy; p != nil {
		if p.FailurePolicy != "" {
			opts = append(opts, admission.WithFailurePolicy(admission.FailurePolicy(p.FailurePolicy)))
		}
		if p.Consistency != "" {
			opts = append(opts, admission.WithConsistency(admission.Consistency(p.Consistency)))
		}
	}
	return admission.NewFilter(cfg.Key, store, cfg.Policy.Window(), cfg.Policy.Limit(), opts...)
}

func (f *Factory) createStore(cfg config.FilterConfig, clients BackendClients) (counterstore.Store, error) {
	switch cfg.Backend {
	case config.InMemory:
		// The janitor goroutine lives for the process lifetime, same as the
		// store it sweeps.
		return inmemory.New(inmemory.WithSweepInterval(time.Minute)), nil
	case config.Redis:
		if clients.RedisClient == nil {
			return nil, fmt.Errorf("redis client is required but not provided for filter '%s'", cfg.Key)
		}
		return redisstore.New(clients.RedisClient), nil
	case config.Memcache:
		if clients.MemcacheClient == nil {
			return nil, fmt.Errorf("memcache client is required but not provided for filter '%s'", cfg.Key)
		}
		return csmemcache.New(clients.MemcacheClient), nil
	default:
		return nil, fmt.Errorf("unsupported backend type '%s' for filter '%s'", cfg.Backend, cfg.Key)
	}
}
