package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"projectflow/pkg/metrics"
	"projectflow/pkg/otel"
	"projectflow/pkg/trace"
)

// Delivery is the part of an AMQP message a handler sees.
type Delivery struct {
	RoutingKey string
	Type       string
	Body       json.RawMessage
}

type MessageHandler func(ctx context.Context, d Delivery) error

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	queueName  string
	bindingKey string
	handler    MessageHandler
	conn       *amqp091.Connection
	logger     *zap.Logger
}

// NewConsumer declares queueName (with its dead letter queue) and binds it to
// the events exchange with bindingKey, e.g. "user.*.notifications".
func NewConsumer(url, queueName, bindingKey string, logger *zap.Logger) (*Consumer, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	fail := func(format string, err error) (*Consumer, error) {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf(format, err)
	}

	if err := DeclareExchange(ch); err != nil {
		return fail("failed to declare exchange: %w", err)
	}
	if err := DeclareDLQExchange(ch); err != nil {
		return fail("failed to declare DLQ exchange: %w", err)
	}
	if _, err := DeclareDLQQueue(ch, queueName, bindingKey); err != nil {
		return fail("%w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		dlqArgs(),
	)
	if err != nil {
		return fail("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, bindingKey, ExchangeName, false, nil); err != nil {
		return fail("failed to bind queue: %w", err)
	}

	if err := ch.Qos(16, 0, false); err != nil {
		return fail("failed to set qos: %w", err)
	}

	logger.Info("Consumer initialized",
		zap.String("binding_key", bindingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		queueName:  q.Name,
		bindingKey: bindingKey,
		logger:     logger,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming blocks until ctx is done or the delivery channel closes.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(
		c.queueName,
		"worker",
		false, // 手动ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("binding_key", c.bindingKey),
		zap.String("queue", c.queueName),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.process(msg)
		}
	}
}

// process 保证每条消息都会被 ack 或 nack
func (c *Consumer) process(msg amqp091.Delivery) {
	ctx := otel.ExtractHeaders(context.Background(), msg.Headers)
	if traceID, ok := msg.Headers[trace.HeaderName()].(string); ok && traceID != "" {
		ctx = trace.WithContext(ctx, traceID)
	}
	ctx, span := otel.MQConsumeSpan(ctx, msg.RoutingKey, c.queueName)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.RecordMQConsumeLatency(c.queueName, time.Since(start))
	}()

	log := c.logger.With(
		zap.String("routing_key", msg.RoutingKey),
		zap.String("queue", c.queueName),
	)
	log.Debug("Received message", zap.Int("message_size", len(msg.Body)))

	// Panic 恢复：panic 的消息不重新入队，直接进入死信队列
	defer func() {
		if r := recover(); r != nil {
			log.Error("Handler panic recovered", zap.Any("panic", r))
			span.SetStatus(codes.Error, "panic")
			if err := msg.Nack(false, false); err != nil {
				log.Error("Failed to nack message after panic", zap.Error(err))
			}
		}
	}()

	err := c.handler(ctx, Delivery{
		RoutingKey: msg.RoutingKey,
		Type:       msg.Type,
		Body:       msg.Body,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		requeue := !errors.Is(err, ErrDeadLetter)
		log.Error("Handler error", zap.Bool("requeue", requeue), zap.Error(err))
		if err := msg.Nack(false, requeue); err != nil {
			log.Error("Failed to nack message", zap.Error(err))
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		log.Error("Failed to ack message", zap.Error(err))
		return
	}
	log.Debug("Message processed successfully")
}
