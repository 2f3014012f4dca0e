package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"poolwatch/internal/snapshot"
	"poolwatch/pkg/config"
)

// The worker follows the snapshot exchange and logs every newly listed token
func main() {
	queue := flag.String("queue", "", "Durable queue to bind (empty for a temporary queue)")
	flag.Parse()

	log.SetFormatter(&log.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if !cfg.RabbitMQ.Enabled() {
		log.Fatal("RABBITMQ_HOST is required for the snapshot worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := config.DialRabbitMQ(ctx, cfg.RabbitMQ)
	if err != nil {
		log.Fatal("RabbitMQ unavailable: ", err)
	}
	defer conn.Close()

	consumer, err := config.NewExchangeConsumer(conn, cfg.RabbitMQ.Exchange, *queue)
	if err != nil {
		log.Fatal("Failed to create consumer: ", err)
	}
	defer consumer.Close()

	watcher := snapshot.NewWatcher()
	log.WithFields(log.Fields{
		"exchange": cfg.RabbitMQ.Exchange,
		"queue":    consumer.Queue(),
	}).Info("Snapshot worker started, waiting for messages...")

	err = consumer.Consume(ctx, func(body []byte) error {
		var frame snapshot.Frame
		if err := json.Unmarshal(body, &frame); err != nil {
			return fmt.Errorf("failed to unmarshal frame: %w", err)
		}
		if frame.Event != snapshot.EventName {
			return fmt.Errorf("unexpected event %q", frame.Event)
		}

		for _, t := range watcher.Observe(frame.Data) {
			log.WithFields(log.Fields{
				"mint":             t.Mint,
				"symbol":           t.Symbol,
				"name":             t.Name,
				"pool_address":     t.PoolAddress,
				"liquidity":        t.Liquidity,
				"liquidity_burned": t.LiquidityBurned,
				"risks":            len(t.Risks),
			}).Info("New token listed")
		}
		log.WithFields(log.Fields{
			"tokens": len(frame.Data),
			"seen":   watcher.Seen(),
		}).Debug("Snapshot received")
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Consumer stopped: ", err)
		return
	}
	log.Info("Snapshot worker stopped")
}
