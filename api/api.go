// Package api constructs admission filters from configuration, owning the
// lifecycle of the backend clients they share.
package api

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	apiinternal "edgegate/api/internal"
	"edgegate/config"
	"edgegate/internal/admission"
)

// clientCloser holds backend clients and implements io.Closer.
type clientCloser struct {
	clients BackendClients
}

// Close shuts down all initialized backend clients. The Memcached client has
// no close operation; its connections are dropped with the process.
func (c *clientCloser) Close() error {
	if c.clients.RedisClient != nil {
		if err := c.clients.RedisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis client: %w", err)
		}
		log.Info().Msg("Redis client closed")
	}
	return nil
}

// NewFiltersFromConfigPath loads config, initializes any needed backend
// clients, and returns the configured admission filters keyed by name, their
// configs, and an io.Closer for the backend clients.
func NewFiltersFromConfigPath(configPath string) (map[string]admission.Filter, map[string]config.FilterConfig, io.Closer, error) {
	cfgFile, err := apiinternal.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error loading configuration: %w", err)
	}
	if len(cfgFile.Filters) == 0 {
		return nil, nil, nil, fmt.Errorf("no filter configurations found in %s", configPath)
	}

	clients, err := initBackendClients(cfgFile.Filters)
	if err != nil {
		return nil, nil, nil, err
	}
	closer := &clientCloser{clients: clients}

	factory := NewFactory()
	filters := make(map[string]admission.Filter, len(cfgFile.Filters))
	configs := make(map[string]config.FilterConfig, len(cfgFile.Filters))

	for _, cfg := range cfgFile.Filters {
		if cfg.Key == "" {
			closer.Close()
			return nil, nil, nil, fmt.Errorf("filter configuration missing 'key' field")
		}
		if _, dup := filters[cfg.Key]; dup {
			closer.Close()
			return nil, nil, nil, fmt.Errorf("duplicate filter key '%s'", cfg.Key)
		}

		filter, err := factory.CreateFilter(cfg, clients)
		if err != nil {
			closer.Close()
			return nil, nil, nil, fmt.Errorf("filter '%s': %w", cfg.Key, err)
		}
		filters[cfg.Key] = filter
		configs[cfg.Key] = cfg
		log.Info().Str("filter", cfg.Key).Str("backend", string(cfg.Backend)).Msg("Admission filter created")
	}

	return filters, configs, closer, nil
}

func initBackendClients(filters []config.FilterConfig) (BackendClients, error) {
	var clients BackendClients

	for _, cfg := range filters {
		switch cfg.Backend {
		case config.Redis:
			if clients.RedisClient != nil {
				continue
			}
			client, err := apiinternal.InitRedisClient(cfg.RedisParams)
			if err != nil {
				return BackendClients{}, err
			}
			clients.RedisClient = client
		case config.Memcache:
			if clients.MemcacheClient != nil {
				continue
			}
			client, err := apiinternal.InitMemcacheClient(cfg.MemcacheParams)
			if err != nil {
				if clients.RedisClient != nil {
					clients.RedisClient.Close()
				}
				return BackendClients{}, err
			}
			clients.MemcacheClient = client
		}
	}
	return clients, nil
}
