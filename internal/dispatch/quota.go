package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DailyQuota is an optional hard cap on sends per calendar day, backed by
// Redis so the count survives restarts. The sliding-window RateLimiter
// smooths the short-term rate; the quota bounds the total.
//
// The check-and-increment runs as a Lua script so concurrent processes
// sharing one Redis cannot race past the cap with GET → check → INCR.
type DailyQuota struct {
	redis  *redis.Client
	limit  int
	script *redis.Script
}

const quotaLuaScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call("GET", key) or "0")
if current + 1 > limit then
    return {0, current}
end

local newVal = redis.call("INCR", key)
if newVal == 1 then
    redis.call("EXPIRE", key, ttl)
end

return {1, newVal}
`

// NewDailyQuota creates a quota guard. A limit of zero disables it.
func NewDailyQuota(client *redis.Client, limit int) *DailyQuota {
	return &DailyQuota{
		redis:  client,
		limit:  limit,
		script: redis.NewScript(quotaLuaScript),
	}
}

// NewDailyQuotaFromURL connects to Redis and builds a quota guard.
func NewDailyQuotaFromURL(redisURL string, limit int) (*DailyQuota, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewDailyQuota(client, limit), nil
}

// Allow atomically consumes one send from today's quota. Returns the count
// after the increment, or the current count when denied.
func (q *DailyQuota) Allow(ctx context.Context) (allowed bool, used int64, err error) {
	if q == nil || q.limit <= 0 {
		return true, 0, nil
	}

	key := fmt.Sprintf("quota:send:%s", time.Now().Format("2006-01-02"))

	// 25h TTL so the key outlives its day across timezone wobble.
	result, err := q.script.Run(ctx, q.redis, []string{key}, q.limit, 90000).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("quota check failed: %w", err)
	}

	return result[0].(int64) == 1, result[1].(int64), nil
}

// Used returns today's consumed quota without incrementing.
func (q *DailyQuota) Used(ctx context.Context) (int64, error) {
	if q == nil {
		return 0, nil
	}
	key := fmt.Sprintf("quota:send:%s", time.Now().Format("2006-01-02"))
	n, err := q.redis.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// Close releases the Redis connection.
func (q *DailyQuota) Close() error {
	if q == nil || q.redis == nil {
		return nil
	}
	return q.redis.Close()
}
