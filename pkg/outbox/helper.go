package outbox

import (
	"context"

	"projectflow/contracts/mq"
	"projectflow/pkg/trace"
)

// NewEvent encodes a bus event for parking in the outbox.
func NewEvent(ctx context.Context, topic string, evt mq.Event) (*Event, error) {
	payload, err := mq.Encode(evt)
	if err != nil {
		return nil, err
	}
	return &Event{
		Topic:      topic,
		RoutingKey: mq.RoutingKey(topic),
		EventType:  evt.EventType(),
		TraceID:    trace.FromContext(ctx),
		Payload:    payload,
		Status:     StatusPending,
	}, nil
}
