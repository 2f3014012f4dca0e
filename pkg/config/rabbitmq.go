package config

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

const (
	rabbitMaxRetries = 10
	rabbitRetryDelay = 3 * time.Second
)

// DialRabbitMQ connects to the broker, retrying while it comes up
func DialRabbitMQ(ctx context.Context, cfg RabbitMQConfig) (*amqp.Connection, error) {
	var lastErr error

	for i := 0; i < rabbitMaxRetries; i++ {
		conn, err := amqp.Dial(cfg.URL())
		if err == nil {
			log.WithFields(log.Fields{
				"host": cfg.Host,
			}).Info("Successfully connected to RabbitMQ")
			return conn, nil
		}
		lastErr = err

		if i < rabbitMaxRetries-1 {
			log.WithFields(log.Fields{
				"attempt":  i + 1,
				"max":      rabbitMaxRetries,
				"error":    err,
				"retry_in": rabbitRetryDelay.String(),
			}).Warn("Failed to connect to RabbitMQ, retrying")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(rabbitRetryDelay):
			}
		}
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", rabbitMaxRetries, lastErr)
}
