package snapshot

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"poolwatch/internal/models"
	"poolwatch/internal/observability"
	"poolwatch/internal/store"
)

// EventName is the event every snapshot frame is tagged with
const EventName = "newRaydiumTokens"

// Sink receives each full snapshot
type Sink interface {
	Name() string
	Send(ctx context.Context, tokens []models.DisplayToken) error
}

// Publisher builds snapshots from the store and fans them out to sinks
type Publisher struct {
	store   *store.TokenStore
	metrics *observability.Metrics

	mu     sync.RWMutex
	sinks  []Sink
	latest []models.DisplayToken

	// serialises emissions so sinks see snapshots in build order
	emitMu sync.Mutex
}

// NewPublisher creates a publisher reading from s
func NewPublisher(s *store.TokenStore, metrics *observability.Metrics, sinks ...Sink) *Publisher {
	return &Publisher{
		store:   s,
		metrics: metrics,
		sinks:   sinks,
		latest:  []models.DisplayToken{},
	}
}

// AddSink registers another destination for future snapshots
func (p *Publisher) AddSink(s Sink) {
	p.mu.Lock()
	p.sinks = append(p.sinks, s)
	p.mu.Unlock()
}

// Build returns the current snapshot without publishing it
func (p *Publisher) Build() []models.DisplayToken {
	return Build(p.store.All())
}

// Latest returns the most recently published snapshot
func (p *Publisher) Latest() []models.DisplayToken {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Publish builds a snapshot, keeps it for readers and hands it to every sink.
// Sink failures are logged and counted, never returned.
func (p *Publisher) Publish(ctx context.Context) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	tokens := p.Build()

	p.mu.Lock()
	p.latest = tokens
	sinks := append([]Sink(nil), p.sinks...)
	p.mu.Unlock()

	p.metrics.RecordSnapshot(len(tokens))

	for _, s := range sinks {
		if err := s.Send(ctx, tokens); err != nil {
			p.metrics.RecordSinkError(s.Name())
			log.WithFields(log.Fields{
				"sink":   s.Name(),
				"tokens": len(tokens),
				"error":  err,
			}).Warn("Failed to deliver snapshot")
		}
	}

	log.WithFields(log.Fields{
		"tokens": len(tokens),
		"sinks":  len(sinks),
	}).Debug("Snapshot published")
}
