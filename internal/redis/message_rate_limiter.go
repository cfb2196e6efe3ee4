package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

// rateLimitScript implements a token bucket per user. It refills tokens
// based on elapsed time since the last call, then tries to consume one.
// Keeping refill and consume in one script makes the check atomic across
// server instances sharing the same Redis.
// ARGV: [1]=now_ms, [2]=capacity, [3]=tokens_per_minute
var rateLimitScript = goredis.NewScript(`
local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local last_refill = tonumber(redis.call('HGET', KEYS[1], 'last_refill'))
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
if tokens == nil then
	tokens = capacity
	last_refill = now
end
local elapsed_minutes = (now - last_refill) / 60000.0
tokens = math.min(capacity, tokens + elapsed_minutes * rate)
local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end
redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'last_refill', tostring(now))
redis.call('EXPIRE', KEYS[1], 120)
return allowed
`)

// MessageRateLimiter implements token bucket rate limiting for message
// creation. Callers should fail open when Allow returns an error: losing
// rate limiting briefly is better than blocking all chat.
type MessageRateLimiter struct {
	rdb      *goredis.Client
	clock    clockwork.Clock
	capacity int
	rate     int // tokens per minute
}

// NewMessageRateLimiter creates a new limiter.
// capacity: maximum burst size (tokens)
// rate: sustained rate (tokens per minute)
func NewMessageRateLimiter(rdb *goredis.Client, clock clockwork.Clock, capacity, rate int) *MessageRateLimiter {
	return &MessageRateLimiter{
		rdb:      rdb,
		clock:    clock,
		capacity: capacity,
		rate:     rate,
	}
}

// Allow reports whether the user may post another message right now.
func (m *MessageRateLimiter) Allow(ctx context.Context, userID uuid.UUID) (bool, error) {
	key := fmt.Sprintf("rate_limit:messages:%s", userID)

	result, err := rateLimitScript.Run(ctx, m.rdb, []string{key},
		strconv.FormatInt(m.clock.Now().UnixMilli(), 10),
		strconv.Itoa(m.capacity),
		strconv.Itoa(m.rate),
	).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	allowed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected rate limit result type %T", result)
	}
	return allowed == 1, nil
}
