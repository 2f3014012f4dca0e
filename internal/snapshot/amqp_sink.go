package snapshot

import (
	"context"

	"poolwatch/internal/models"
)

// MessagePublisher sends one JSON message to a broker
type MessagePublisher interface {
	Publish(ctx context.Context, message interface{}) error
}

// Frame is the envelope shared by every transport
type Frame struct {
	Event string                `json:"event"`
	Data  []models.DisplayToken `json:"data"`
}

// NewFrame wraps tokens in a snapshot frame
func NewFrame(tokens []models.DisplayToken) Frame {
	if tokens == nil {
		tokens = []models.DisplayToken{}
	}
	return Frame{Event: EventName, Data: tokens}
}

// AMQPSink forwards snapshots to a broker exchange
type AMQPSink struct {
	publisher MessagePublisher
}

// NewAMQPSink creates a sink on top of publisher
func NewAMQPSink(publisher MessagePublisher) *AMQPSink {
	return &AMQPSink{publisher: publisher}
}

// Name implements Sink
func (s *AMQPSink) Name() string {
	return "amqp"
}

// Send implements Sink
func (s *AMQPSink) Send(ctx context.Context, tokens []models.DisplayToken) error {
	return s.publisher.Publish(ctx, NewFrame(tokens))
}
