// Package eventbus is an in-process topic publish/subscribe bus.
//
// Publish delivers synchronously to the subscribers of one topic in
// subscription order. A subscriber that returns an error or panics is logged
// and counted; the remaining subscribers still run and the publisher never
// sees the failure.
package eventbus

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"projectflow/contracts/mq"
	"projectflow/pkg/logger"
	"projectflow/pkg/metrics"
)

type Handler func(ctx context.Context, evt mq.Event) error

type subscription struct {
	id      uint64
	handler Handler
}

type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID uint64
	logger *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:   make(map[string][]subscription),
		logger: logger,
	}
}

// Subscribe registers h for topic and returns a function that removes it.
// Calling the returned function more than once is a no-op.
func (b *Bus) Subscribe(topic string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

func (b *Bus) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s.id != id {
			continue
		}
		// copy-on-write so in-flight Publish snapshots are unaffected
		next := make([]subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(b.subs, topic)
		} else {
			b.subs[topic] = next
		}
		return
	}
}

// Publish fans evt out to every current subscriber of topic.
func (b *Bus) Publish(ctx context.Context, topic string, evt mq.Event) {
	b.mu.RLock()
	subs := b.subs[topic]
	b.mu.RUnlock()

	kind := mq.TopicKind(topic)
	metrics.IncBusPublished(kind, evt.EventType())

	for _, s := range subs {
		b.dispatch(ctx, topic, kind, s, evt)
	}
}

func (b *Bus) dispatch(ctx context.Context, topic, kind string, s subscription, evt mq.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.IncBusHandlerFailure(kind, "panic")
			logger.WithTrace(ctx, b.logger).Error("Bus handler panic recovered",
				zap.String("topic", topic),
				zap.String("event_type", evt.EventType()),
				zap.Uint64("subscription_id", s.id),
				zap.Any("panic", rec),
			)
		}
	}()

	if err := s.handler(ctx, evt); err != nil {
		metrics.IncBusHandlerFailure(kind, "error")
		logger.WithTrace(ctx, b.logger).Warn("Bus handler failed",
			zap.String("topic", topic),
			zap.String("event_type", evt.EventType()),
			zap.Uint64("subscription_id", s.id),
			zap.Error(err),
		)
	}
}

// SubscriberCount returns the number of handlers registered for topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
