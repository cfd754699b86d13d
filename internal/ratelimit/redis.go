package ratelimit

import (
	"context"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const slidingWindowScript = `
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", KEYS[1], 0, now - window)

local count = redis.call("ZCARD", KEYS[1])
if count < limit then
  redis.call("ZADD", KEYS[1], now, member)
  redis.call("PEXPIRE", KEYS[1], window)
  return {1, limit - count - 1, 0}
end

local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
local retry = 0
if oldest[2] then
  retry = (tonumber(oldest[2]) + window) - now
end
return {0, 0, retry}
`

// RedisStore shares one sliding window across processes using a sorted set
// per key. Prune, count and insert run inside a single Lua script so the
// decision is atomic on the redis side.
type RedisStore struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		return nil
	}
	return &RedisStore{
		client: client,
		script: redis.NewScript(slidingWindowScript),
	}
}

func (s *RedisStore) Take(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	res, err := s.script.Run(
		ctx,
		s.client,
		[]string{"ratelimit:" + key},
		limit,
		window.Milliseconds(),
		now.UnixMilli(),
		uuid.NewString(),
	).Slice()
	if err != nil {
		return Result{}, err
	}

	result := Result{Limit: limit}
	if len(res) < 3 {
		return result, nil
	}
	result.Allowed = castToInt(res[0]) == 1
	result.Remaining = int(castToInt(res[1]))
	if retry := castToInt(res[2]); retry > 0 {
		result.RetryAfter = time.Duration(retry) * time.Millisecond
		result.ResetTime = now.Add(result.RetryAfter)
	}
	return result, nil
}

func castToInt(v interface{}) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	default:
		return 0
	}
}
