package config

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// ExchangeConsumer reads messages fanned out by an exchange through its own queue
type ExchangeConsumer struct {
	channel *amqp.Channel
	queue   string
}

// NewExchangeConsumer declares queue, binds it to exchange and returns a
// consumer for it. An empty queue name asks the broker for an exclusive,
// auto-deleted queue.
func NewExchangeConsumer(conn *amqp.Connection, exchange, queue string) (*ExchangeConsumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection not initialized")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	durable := queue != ""
	q, err := ch.QueueDeclare(
		queue,
		durable,  // durable
		!durable, // autoDelete
		!durable, // exclusive
		false,    // noWait
		nil,      // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to bind queue %s: %w", q.Name, err)
	}

	return &ExchangeConsumer{
		channel: ch,
		queue:   q.Name,
	}, nil
}

// Queue returns the name of the bound queue
func (c *ExchangeConsumer) Queue() string {
	return c.queue
}

// Consume passes every message body to handler until ctx is cancelled or
// the delivery channel closes. Failed messages are dropped, not requeued.
func (c *ExchangeConsumer) Consume(ctx context.Context, handler func([]byte) error) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming %s: %w", c.queue, err)
	}

	log.WithFields(log.Fields{
		"queue": c.queue,
	}).Info("Consumer is running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed for %s", c.queue)
			}
			if err := handler(msg.Body); err != nil {
				log.WithFields(log.Fields{
					"queue": c.queue,
					"error": err,
				}).Warn("Handle msg failed")
				msg.Nack(false, false)
				continue
			}
			msg.Ack(false)
		}
	}
}

// Close closes the consumer channel
func (c *ExchangeConsumer) Close() error {
	return c.channel.Close()
}
