package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deduper struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewDeduper 创建去重器, logger 可为 nil
func NewDeduper(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce returns true the first time handler sees id within the TTL and
// false for duplicates.
func (d *Deduper) AcquireOnce(ctx context.Context, handler, id string) bool {
	key := fmt.Sprintf("dedup:%s:%s", handler, id)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		// Redis 不可用时不阻止处理，下游靠唯一约束兜底
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("handler", handler),
			zap.String("id", id),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.String("id", id),
			zap.String("dedup_key", key),
		)
	}

	return ok
}

// Release forgets id so a redelivered message is processed again. Handlers
// call it when processing failed after AcquireOnce succeeded.
func (d *Deduper) Release(ctx context.Context, handler, id string) {
	key := fmt.Sprintf("dedup:%s:%s", handler, id)
	if err := d.rdb.Del(ctx, key).Err(); err != nil {
		d.logger.Warn("Redis dedup release failed",
			zap.String("dedup_key", key),
			zap.Error(err),
		)
	}
}
