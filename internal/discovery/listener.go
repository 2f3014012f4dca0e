package discovery

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	chain "poolwatch/pkg/solana"
)

// EventSource streams program log events until its context ends
type EventSource interface {
	Run(ctx context.Context, out chan<- chain.LogEvent) error
}

// Listener feeds subscription events to a fixed pool of handler workers
type Listener struct {
	source    EventSource
	handler   *Handler
	workers   int
	queueSize int
}

// NewListener creates a listener. workers and queueSize default to 4 and 256.
func NewListener(source EventSource, handler *Handler, workers, queueSize int) *Listener {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Listener{
		source:    source,
		handler:   handler,
		workers:   workers,
		queueSize: queueSize,
	}
}

// Run blocks until ctx is cancelled and every in-flight event is handled
func (l *Listener) Run(ctx context.Context) error {
	events := make(chan chain.LogEvent, l.queueSize)

	var wg sync.WaitGroup
	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			l.work(ctx, id, events)
		}(i)
	}

	err := l.source.Run(ctx, events)
	close(events)
	wg.Wait()
	return err
}

func (l *Listener) work(ctx context.Context, id int, events <-chan chain.LogEvent) {
	for ev := range events {
		if ctx.Err() != nil {
			// drain without processing
			continue
		}
		l.handle(ctx, id, ev)
	}
}

func (l *Listener) handle(ctx context.Context, id int, ev chain.LogEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"signature": ev.Signature,
				"worker":    id,
				"panic":     r,
			}).Error("Recovered from panic while handling event")
		}
	}()

	if _, err := l.handler.HandleEvent(ctx, ev); err != nil {
		log.WithFields(log.Fields{
			"signature": ev.Signature,
			"slot":      ev.Slot,
			"worker":    id,
			"error":     err.Error(),
		}).Warn("Dropped pool event")
	}
}
