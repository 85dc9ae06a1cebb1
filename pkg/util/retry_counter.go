package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RetryCounter counts delivery attempts per message in Redis so the count
// survives redelivery to another worker.
type RetryCounter struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRetryCounter(rdb redis.Cmdable, ttl time.Duration) *RetryCounter {
	return &RetryCounter{rdb: rdb, ttl: ttl}
}

// IncrementAndGet bumps the attempt count and refreshes its TTL in one round
// trip. The key expires ttl after the last failed attempt.
func (r *RetryCounter) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("retry counter %s: %w", key, err)
	}
	return incr.Val(), nil
}

func (r *RetryCounter) Reset(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// FormatRetryKey formats a retry key for a handler and message id.
func FormatRetryKey(handler, id string) string {
	return fmt.Sprintf("retry:%s:%s", handler, id)
}
