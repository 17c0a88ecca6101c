package memcacheiface

import "github.com/bradfitz/gomemcache/memcache"

// Client defines the Memcached client operations the counter store needs.
// It lets unit tests substitute a fake for *memcache.Client.
type Client interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Add(item *memcache.Item) error
	Increment(key string, delta uint64) (newValue uint64, err error)
}
