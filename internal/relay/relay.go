package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"projectflow/contracts/mq"
	"projectflow/internal/workflow"
	"projectflow/pkg/circuitbreaker"
	"projectflow/pkg/eventbus"
	"projectflow/pkg/logger"
	"projectflow/pkg/metrics"
	"projectflow/pkg/outbox"
)

type Subscriber interface {
	Subscribe(topic string, h eventbus.Handler) (unsubscribe func())
}

// Publisher sends an encoded event to the broker; *mq.Publisher implements it.
type Publisher interface {
	PublishRaw(ctx context.Context, routingKey, eventType string, body []byte) error
}

// Parker stores events the broker did not accept; *outbox.Repository implements it.
type Parker interface {
	Insert(ctx context.Context, e *outbox.Event) error
}

// Relay forwards bus events to the AMQP events exchange. Each bus topic maps to
// a routing key with ":" replaced by ".".
type Relay struct {
	bus     Subscriber
	pub     Publisher
	breaker *circuitbreaker.CircuitBreaker
	parker  Parker
	logger  *zap.Logger

	mu   sync.Mutex
	subs map[string]func()
}

func New(bus Subscriber, pub Publisher, breaker *circuitbreaker.CircuitBreaker, log *zap.Logger) *Relay {
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig())
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{
		bus:     bus,
		pub:     pub,
		breaker: breaker,
		logger:  log,
		subs:    make(map[string]func()),
	}
}

// WithOutbox parks events in the outbox when publishing fails.
func (r *Relay) WithOutbox(p Parker) *Relay {
	r.parker = p
	return r
}

// Attach subscribes to the project topics and both parties' notification
// topics. It is safe to call again after a homeowner is linked.
func (r *Relay) Attach(_ context.Context, c *workflow.Coordinator) error {
	info := c.Info()
	topics := []string{
		mq.MilestonesTopic(info.ID),
		mq.DocumentsTopic(info.ID),
		mq.MessagesTopic(info.ID),
		mq.NotificationsTopic(info.ContractorID),
	}
	if info.HomeownerID != "" {
		topics = append(topics, mq.NotificationsTopic(info.HomeownerID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	added := 0
	for _, topic := range topics {
		if _, ok := r.subs[topic]; ok {
			continue
		}
		r.subs[topic] = r.bus.Subscribe(topic, r.forward(topic))
		added++
	}
	if added > 0 {
		r.logger.Info("Relay attached",
			zap.String("project_id", info.ID),
			zap.Int("topics", added))
	}
	return nil
}

func (r *Relay) forward(topic string) eventbus.Handler {
	routingKey := mq.RoutingKey(topic)
	kind := mq.TopicKind(topic)

	return func(ctx context.Context, evt mq.Event) error {
		body, err := mq.Encode(evt)
		if err != nil {
			return fmt.Errorf("encode %s: %w", evt.EventType(), err)
		}

		err = r.breaker.Execute(func() error {
			return r.pub.PublishRaw(ctx, routingKey, evt.EventType(), body)
		})
		if err == nil {
			return nil
		}
		metrics.IncMQPublishFailure(kind)
		if r.parker == nil {
			return err
		}

		parked, perr := outbox.NewEvent(ctx, topic, evt)
		if perr == nil {
			perr = r.parker.Insert(ctx, parked)
		}
		if perr != nil {
			return errors.Join(err, perr)
		}
		metrics.IncOutboxEvent(outbox.StatusPending)
		logger.WithTrace(ctx, r.logger).Warn("MQ publish failed, event parked in outbox",
			zap.String("routing_key", routingKey),
			zap.String("event_type", evt.EventType()),
			zap.Int64("outbox_id", parked.ID),
			zap.Error(err))
		return nil
	}
}

// Topics lists the bus topics currently forwarded.
func (r *Relay) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.subs))
	for t := range r.subs {
		out = append(out, t)
	}
	return out
}

func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for topic, unsubscribe := range r.subs {
		unsubscribe()
		delete(r.subs, topic)
	}
}
