package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backoffice/internal/domain"

	"github.com/redis/go-redis/v9"
)

// redisLimiter shares one fixed window across every back-office instance,
// selected via config for multi-process deployments. The counter and its
// expiry live entirely in redis; this side only interprets the reply.
type redisLimiter struct {
	client *redis.Client
	now    func() time.Time
}

// The INCR and PEXPIRE must be atomic: two first requests racing between the
// calls would otherwise leave a counter with no expiry.
var incrWithExpiry = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {hits, redis.call("PTTL", KEYS[1])}
`)

func NewRedisLimiter(addr, password string, db int, now func() time.Time) (domain.RateLimiter, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if now == nil {
		now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisLimiter{client: client, now: now}, nil
}

func (r *redisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	windowMillis := window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = 1000
	}
	reply, err := incrWithExpiry.Run(ctx, r.client, []string{key}, windowMillis).Result()
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	hits, ttlMillis, err := parseCounterReply(reply)
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	return windowDecision(hits, ttlMillis, limit, r.now()), nil
}

// parseCounterReply unpacks the {hits, pttl} pair returned by the script.
func parseCounterReply(reply any) (hits, ttlMillis int64, err error) {
	pair, ok := reply.([]any)
	if !ok || len(pair) != 2 {
		return 0, 0, fmt.Errorf("rate limit script reply %T, want [hits, pttl]", reply)
	}
	hits, ok = pair[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("rate limit counter %T, want int64", pair[0])
	}
	ttlMillis, _ = pair[1].(int64)
	return hits, ttlMillis, nil
}

// windowDecision maps a post-increment hit count onto the shared decision
// shape. PTTL is negative for keys without an expiry; those count as an
// already-elapsed window so the reset time never lands in the past.
func windowDecision(hits, ttlMillis int64, limit int, now time.Time) domain.RateLimitDecision {
	resetAt := now
	if ttlMillis > 0 {
		resetAt = now.Add(time.Duration(ttlMillis) * time.Millisecond)
	}
	remaining := limit - int(hits)
	if remaining < 0 {
		remaining = 0
	}
	return domain.RateLimitDecision{
		Allowed:   hits <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
