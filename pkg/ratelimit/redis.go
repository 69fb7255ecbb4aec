package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript prunes expired members, checks the window, and
// admits atomically. Returns {allowed, count, retry_ms}.
var slidingWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", KEYS[1], 0, now - window)
local count = redis.call("ZCARD", KEYS[1])
if count >= limit then
  local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
  local retry = window - (now - tonumber(oldest[2]))
  if retry < 0 then retry = 0 end
  return {0, count, retry}
end
redis.call("ZADD", KEYS[1], now, member)
redis.call("PEXPIRE", KEYS[1], window)
return {1, count + 1, 0}
`)

// RedisStore keeps per-key windows in a Redis sorted set, one member per
// admitted call scored by its millisecond timestamp. Suitable for
// multi-process deployments where every replica must share quota.
type RedisStore struct {
	client *redis.Client
	prefix string
	seq    atomic.Uint64
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store over client. Keys are namespaced as
// "strom:ratelimit:<key>".
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "strom:ratelimit:",
	}
}

// Take implements Store.
func (s *RedisStore) Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	nowMs := now.UnixMilli()
	// Member carries a sequence suffix so calls in the same millisecond
	// stay distinct in the set.
	member := fmt.Sprintf("%d-%d", nowMs, s.seq.Add(1))

	vals, err := slidingWindowScript.Run(ctx, s.client,
		[]string{s.prefix + key},
		nowMs, window.Milliseconds(), limit, member,
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("rate limit script: unexpected reply %v", vals)
	}

	allowed := vals[0] == 1
	count := int(vals[1])

	res := Result{
		Allowed: allowed,
		Limit:   limit,
	}
	if allowed {
		res.Remaining = limit - count
		if res.Remaining < 0 {
			res.Remaining = 0
		}
	} else {
		res.RetryAfter = time.Duration(vals[2]) * time.Millisecond
	}
	return res, nil
}

// Close releases the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
