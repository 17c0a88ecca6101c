package internal

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"

	"edgegate/config"
)

// ConfigFile represents the top-level structure of the configuration file.
type ConfigFile struct {
	Filters []config.FilterConfig `yaml:"filters"`
}

// LoadConfig reads and unmarshals the YAML config. It expects a list of
// admission filters under the 'filters' key.
func LoadConfig(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	var cfg ConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config file %s: %w", path, err)
	}
	log.Info().Str("config_path", path).Int("filters", len(cfg.Filters)).Msg("Configuration loaded")
	return &cfg, nil
}

// InitRedisClient initializes and pings a Redis client based on config.
// A gateway must not serve traffic with an unreachable counter binding, so a
// failed ping is fatal to startup.
func InitRedisClient(params *config.RedisBackendConfig) (*redis.Client, error) {
	if params == nil {
		return nil, fmt.Errorf("redis backend selected but redis_params are missing in config")
	}
	log.Info().Str("address", params.Address).Int("db", params.DB).Msg("Initializing Redis client")

	client := redis.NewClient(&redis.Options{
		Addr:     params.Address,
		Password: params.Password,
		DB:       params.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", params.Address, err)
	}
	log.Info().Str("address", params.Address).Msg("Connected to Redis")
	return client, nil
}

// InitMemcacheClient initializes a Memcached client based on config. The
// client connects lazily; reachability is verified with a throwaway write so
// a bad binding fails at startup rather than on the first request.
func InitMemcacheClient(params *config.MemcacheBackendConfig) (*memcache.Client, error) {
	if params == nil || len(params.Addresses) == 0 {
		return nil, fmt.Errorf("memcache backend selected but memcache_params are missing in config")
	}
	log.Info().Strs("addresses", params.Addresses).Msg("Initializing Memcached client")

	client := memcache.New(params.Addresses...)
	probe := &memcache.Item{Key: "edgegate_startup_probe", Value: []byte("1"), Expiration: 10}
	if err := client.Set(probe); err != nil {
		return nil, fmt.Errorf("failed to connect to Memcached at %v: %w", params.Addresses, err)
	}
	_ = client.Delete(probe.Key)
	log.Info().Strs("addresses", params.Addresses).Msg("Connected to Memcached")
	return client, nil
}
