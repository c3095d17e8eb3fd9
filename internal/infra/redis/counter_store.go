package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript implements the fixed-window counter atomically: a missing
// or elapsed window is replaced with a fresh one at count 1, otherwise
// the count is incremented. Compiled once at package initialization.
var incrScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])

	local start = redis.call('HGET', key, 'start')
	if (not start) or (now - tonumber(start) >= window_ms) then
		redis.call('HSET', key, 'start', now, 'count', 1)
		redis.call('PEXPIRE', key, window_ms)
		return 1
	end

	return redis.call('HINCRBY', key, 'count', 1)
`)

// CounterStore is the Redis implementation of the fixed-window counter
// store, for deployments where the limit must hold across instances.
type CounterStore struct {
	client *Client
	prefix string
}

// NewCounterStore creates a Redis-backed counter store.
func NewCounterStore(client *Client) *CounterStore {
	return &CounterStore{
		client: client,
		prefix: "ratelimit:",
	}
}

// Incr counts a request against the key's current window.
func (s *CounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now().UnixMilli()
	result, err := incrScript.Run(ctx, s.client.Client(),
		[]string{s.prefix + key},
		now, window.Milliseconds(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis counter incr: %w", err)
	}
	return result, nil
}
