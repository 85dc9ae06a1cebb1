package mqhandler

import (
	"context"

	"go.uber.org/zap"

	"projectflow/pkg/mq"
	"projectflow/pkg/util"
)

const defaultMaxRetries = 5

type Deduper interface {
	AcquireOnce(ctx context.Context, handler, id string) bool
	Release(ctx context.Context, handler, id string)
}

type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// retryPolicy turns a processing error into the consumer's ack decision:
// nil acks, a plain error requeues, mq.DeadLetter rejects for good.
type retryPolicy struct {
	counter    RetryCounter
	maxRetries int64
	logger     *zap.Logger
}

func (p retryPolicy) decide(ctx context.Context, handler, id string, err error) error {
	isRetryable, errType := util.IsRetryableError(err)
	log := p.logger.With(
		zap.String("handler", handler),
		zap.String("id", id),
		zap.String("error_type", errType),
		zap.Bool("retryable", isRetryable),
		zap.Error(err),
	)

	if !isRetryable {
		log.Error("Non-retryable error, message acked")
		return nil
	}
	if p.counter == nil {
		log.Warn("Retryable error, message requeued")
		return err
	}

	key := util.FormatRetryKey(handler, id)
	count, cerr := p.counter.IncrementAndGet(ctx, key)
	if cerr != nil {
		log.Warn("Retry counter unavailable, message requeued", zap.NamedError("counter_error", cerr))
		return err
	}
	if !util.ShouldRetry(count, p.maxRetries, isRetryable) {
		_ = p.counter.Reset(ctx, key)
		log.Error("Max retries exceeded, message dead-lettered", zap.Int64("retry", count))
		return mq.DeadLetter(err)
	}
	log.Warn("Retryable error, message requeued", zap.Int64("retry", count))
	return err
}

func (p retryPolicy) succeeded(ctx context.Context, handler, id string) {
	if p.counter != nil {
		_ = p.counter.Reset(ctx, util.FormatRetryKey(handler, id))
	}
}
