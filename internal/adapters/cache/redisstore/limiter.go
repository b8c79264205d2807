package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/okian/lifespan/internal/adapters/cache"
)

// Limiter is a fixed-window attempt counter. The window starts with the
// first attempt and is created together with the count in one transaction,
// so a key never outlives its window.
type Limiter struct {
	rdb     *redis.Client
	prefix  string
	maxHits int64
	window  time.Duration
}

var _ cache.Limiter = (*Limiter)(nil)

// NewLimiter allows maxAttempts attempts per key in each window.
func NewLimiter(rdb *redis.Client, maxAttempts int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, prefix: defaultPrefix + "attempts:", maxHits: int64(maxAttempts), window: window}
}

func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + key
	pipe := l.rdb.TxPipeline()
	pipe.SetNX(ctx, k, 0, l.window)
	incr := pipe.Incr(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to count attempt: %w", err)
	}
	return incr.Val() <= l.maxHits, nil
}

func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset attempts: %w", err)
	}
	return nil
}
