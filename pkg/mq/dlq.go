package mq

import (
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

const (
	DLQExchangeName = "events.dlq"
)

// ErrDeadLetter marks a handler error that must not be redelivered. The
// consumer rejects such messages without requeue so the broker moves them to
// the dead letter exchange.
var ErrDeadLetter = errors.New("dead letter")

// DeadLetter wraps err so the consumer dead-letters the message.
func DeadLetter(err error) error {
	return fmt.Errorf("%w: %w", ErrDeadLetter, err)
}

// DeclareDLQExchange declares the dead letter exchange.
func DeclareDLQExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		DLQExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
}

// DeclareDLQQueue declares "<queue>.dlq" and binds it to every routing key the
// source queue may dead-letter.
func DeclareDLQQueue(ch *amqp091.Channel, queueName, bindingKey string) (amqp091.Queue, error) {
	q, err := ch.QueueDeclare(
		queueName+".dlq",
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare DLQ queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		bindingKey,
		DLQExchangeName,
		false,
		nil,
	)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to bind DLQ queue: %w", err)
	}

	return q, nil
}

// dlqArgs routes rejected messages of a queue to the dead letter exchange.
func dlqArgs() amqp091.Table {
	return amqp091.Table{
		"x-dead-letter-exchange": DLQExchangeName,
	}
}
