package mq

import (
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName is the topic exchange every bus event is published to.
	ExchangeName = "events"

	dialAttempts = 5
)

var ErrNotConnected = errors.New("mq connection is closed")

// NewConnection dials RabbitMQ, retrying with a linear backoff so services can
// start before the broker is ready.
func NewConnection(url string) (*amqp091.Connection, error) {
	var lastErr error
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		conn, err := amqp091.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if attempt < dialAttempts {
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", dialAttempts, lastErr)
}

// DeclareExchange declares the durable events topic exchange.
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil)
}
