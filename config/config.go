package config

import "time"

// BackendType represents the counter storage backend.
type BackendType string

const (
	InMemory BackendType = "in_memory"
	Redis    BackendType = "redis"
	Memcache BackendType = "memcache"
)

// Policy defaults, matching the edge deployment the gateway was built for.
const (
	DefaultWindowSeconds        = int64(60)
	DefaultMaxRequestsPerWindow = int64(20)
	DefaultStoreTimeout         = 2 * time.Second
)

// FilterConfig holds the configuration for a single admission filter.
type FilterConfig struct {
	Key     string      `yaml:"key"`
	Backend BackendType `yaml:"backend"`

	Policy *PolicyConfig `yaml:"policy,omitempty"`

	RedisParams    *RedisBackendConfig    `yaml:"redis_params,omitempty"`
	MemcacheParams *MemcacheBackendConfig `yaml:"memcache_params,omitempty"`
}

// PolicyConfig holds the admission policy for one filter. Zero values fall
// back to the defaults above.
type PolicyConfig struct {
	WindowSeconds        int64  `yaml:"window_seconds"`
	MaxRequestsPerWindow int64  `yaml:"max_requests_per_window"`
	FailurePolicy        string `yaml:"failure_policy,omitempty"` // fail_closed (default) or fail_open
	Consistency          string `yaml:"consistency,omitempty"`    // eventual (default) or strict
	StoreTimeoutMillis   int64  `yaml:"store_timeout_ms,omitempty"`
}

// Window returns the configured window length, defaulted.
func (p *PolicyConfig) Window() time.Duration {
	if p == nil || p.WindowSeconds <= 0 {
		return time.Duration(DefaultWindowSeconds) * time.Second
	}
	return time.Duration(p.WindowSeconds) * time.Second
}

// Limit returns the configured per-window request limit, defaulted.
func (p *PolicyConfig) Limit() int64 {
	if p == nil || p.MaxRequestsPerWindow <= 0 {
		return DefaultMaxRequestsPerWindow
	}
	return p.MaxRequestsPerWindow
}

// StoreTimeout returns the configured store operation bound, defaulted.
func (p *PolicyConfig) StoreTimeout() time.Duration {
	if p == nil || p.StoreTimeoutMillis <= 0 {
		return DefaultStoreTimeout
	}
	return time.Duration(p.StoreTimeoutMillis) * time.Millisecond
}

// RedisBackendConfig holds parameters for the Redis backend.
type RedisBackendConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// MemcacheBackendConfig holds parameters for the Memcached backend.
type MemcacheBackendConfig struct {
	Addresses []string `yaml:"addresses"`
}
