package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
)

// RedisLimiter keeps a sliding log of request timestamps per key and limit in
// Redis sorted sets, so every gateway process shares the same counters.
type RedisLimiter struct {
	client *redisv9.Client
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client *redisv9.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix + "rl:", now: time.Now}
}

func (l *RedisLimiter) windowKey(key string, limit Limit) string {
	return l.prefix + key + ":" + strconv.FormatInt(int64(limit.Period/time.Second), 10)
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limits []Limit) (bool, time.Duration, error) {
	now := l.now()
	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString())

	cards := make([]*redisv9.IntCmd, len(limits))
	_, err := l.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		for i, limit := range limits {
			wk := l.windowKey(key, limit)
			windowStart := now.Add(-limit.Period).UnixNano()
			pipe.ZRemRangeByScore(ctx, wk, "-inf", strconv.FormatInt(windowStart, 10))
			pipe.ZAdd(ctx, wk, redisv9.Z{Score: float64(now.UnixNano()), Member: member})
			cards[i] = pipe.ZCard(ctx, wk)
			pipe.PExpire(ctx, wk, limit.Period)
		}
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("rate limit pipeline: %w", err)
	}

	var wait time.Duration
	denied := false
	for i, limit := range limits {
		if cards[i].Val() <= int64(limit.Count) {
			continue
		}
		denied = true
		wait = max(wait, l.retryAfter(ctx, l.windowKey(key, limit), limit, now))
	}
	if !denied {
		return true, 0, nil
	}

	// Rejected requests do not occupy the window. A failed rollback only
	// makes the window stricter, so it is not reported.
	_, _ = l.client.Pipelined(ctx, func(pipe redisv9.Pipeliner) error {
		for _, limit := range limits {
			pipe.ZRem(ctx, l.windowKey(key, limit), member)
		}
		return nil
	})
	return false, wait, nil
}

// retryAfter is the time until the oldest entry in the window expires.
func (l *RedisLimiter) retryAfter(ctx context.Context, wk string, limit Limit, now time.Time) time.Duration {
	oldest, err := l.client.ZRangeWithScores(ctx, wk, 0, 0).Result()
	if err != nil || len(oldest) == 0 {
		return limit.Period
	}
	expires := time.Unix(0, int64(oldest[0].Score)).Add(limit.Period)
	if d := expires.Sub(now); d > 0 {
		return d
	}
	return 0
}
