package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Verdict is the outcome of a single Allow call.
type Verdict struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// SlidingWindow counts events per key in a Redis sorted set scored by
// nanosecond timestamps. Entries older than the window are dropped on each
// call, so bursts drain gradually instead of resetting on a boundary.
type SlidingWindow struct {
	Client *redis.Client
	Prefix string
}

// Allow records one event for key and reports whether it fits the window.
// A nil client or non-positive limit disables throttling.
func (sw SlidingWindow) Allow(ctx context.Context, key string, window time.Duration, limit int) (Verdict, error) {
	now := time.Now()
	reset := now.Add(window)
	if sw.Client == nil || limit <= 0 || window <= 0 {
		return Verdict{Allowed: true, Remaining: limit, Reset: reset}, nil
	}

	setKey := sw.Prefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := sw.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, setKey, "-inf", cutoff)
	pipe.ZAdd(ctx, setKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	count := pipe.ZCard(ctx, setKey)
	pipe.Expire(ctx, setKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Verdict{Reset: reset}, err
	}

	used := int(count.Val())
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Verdict{Allowed: used <= limit, Remaining: remaining, Reset: reset}, nil
}
