package config

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangePublisher publishes JSON messages to a fanout exchange
type ExchangePublisher struct {
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
}

// NewExchangePublisher opens a channel on conn and declares exchange
func NewExchangePublisher(conn *amqp.Connection, exchange string) (*ExchangePublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection not initialized")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &ExchangePublisher{
		channel:  ch,
		exchange: exchange,
	}, nil
}

// Publish marshals message to JSON and sends it to the exchange
func (p *ExchangePublisher) Publish(ctx context.Context, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		"",    // routing key, ignored by fanout
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close closes the publisher channel
func (p *ExchangePublisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
