package redis

import "github.com/go-redis/redis/v8"

// incrementScript atomically increments a window counter and attaches the
// TTL when the key is first created.
// KEYS[1]: the counter key (e.g., "1.2.3.4:28934817")
// ARGV[1]: expiry in seconds
// Returns the counter value after the increment.
var incrementScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('EXPIRE', KEYS[1], tonumber(ARGV[1]))
	end
	return count
`)
