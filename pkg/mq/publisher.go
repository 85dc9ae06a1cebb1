package mq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/codes"

	"projectflow/pkg/otel"
	"projectflow/pkg/trace"
)

type Publisher struct {
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewPublisher(url string) (*Publisher, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:    conn,
		channel: ch,
	}, nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// IsConnected checks if the publisher connection is still alive
func (p *Publisher) IsConnected() bool {
	if p.conn == nil || p.channel == nil {
		return false
	}
	return !p.conn.IsClosed()
}

// PublishRaw publishes an already encoded JSON body. The trace context and the
// request trace id travel in the message headers.
func (p *Publisher) PublishRaw(ctx context.Context, routingKey, eventType string, body []byte) error {
	ctx, span := otel.MQPublishSpan(ctx, routingKey, ExchangeName)
	defer span.End()

	headers := amqp091.Table{}
	otel.InjectHeaders(ctx, headers)
	if traceID := trace.FromContext(ctx); traceID != "" {
		headers[trace.HeaderName()] = traceID
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		Type:         eventType,
		Timestamp:    time.Now(),
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Headers:      headers,
	}

	// amqp channel 不是并发安全的
	p.mu.Lock()
	err := p.channel.PublishWithContext(ctx, ExchangeName, routingKey, false, false, msg)
	p.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}
