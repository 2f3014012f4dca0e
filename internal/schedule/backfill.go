package schedule

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"poolwatch/internal/enrich"
	"poolwatch/internal/observability"
	"poolwatch/internal/store"
)

// Publisher emits a fresh snapshot to subscribers
type Publisher interface {
	Publish(ctx context.Context)
}

// MetadataBackfill retries metadata resolution for unresolved mints,
// bounded per mint by a RefetchTracker.
type MetadataBackfill struct {
	agg       *enrich.Aggregator
	tracker   *store.RefetchTracker
	publisher Publisher
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewMetadataBackfill creates the job. publisher may be nil.
func NewMetadataBackfill(agg *enrich.Aggregator, tracker *store.RefetchTracker, publisher Publisher, metrics *observability.Metrics) *MetadataBackfill {
	return &MetadataBackfill{
		agg:       agg,
		tracker:   tracker,
		publisher: publisher,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Name implements Job
func (b *MetadataBackfill) Name() string {
	return "metadata_backfill"
}

// Run makes one pass over every mint with unresolved metadata
func (b *MetadataBackfill) Run(ctx context.Context) {
	started := time.Now()
	defer b.metrics.RecordJobRun(b.Name(), started)

	s := b.agg.Store()
	now := b.now()
	attempted, resolved := 0, 0
	for _, mint := range s.Mints() {
		if ctx.Err() != nil {
			return
		}
		tried, ok := b.attempt(ctx, s, mint, now)
		if tried {
			attempted++
		}
		if ok {
			resolved++
		}
	}

	if attempted > 0 {
		log.WithFields(log.Fields{
			"attempted": attempted,
			"resolved":  resolved,
		}).Debug("Metadata backfill pass finished")
	}
	if b.publisher != nil {
		b.publisher.Publish(ctx)
	}
}

// attempt reports whether a resolution was tried and whether it succeeded.
// All mints of one pass are stamped with the pass start time.
func (b *MetadataBackfill) attempt(ctx context.Context, s *store.TokenStore, mint string, now time.Time) (bool, bool) {
	unlock := s.LockMint(mint)
	defer unlock()

	// discovery may have resolved the mint while the pass was running
	rec, err := s.Get(mint)
	if err != nil || !rec.MetadataUnresolved() {
		return false, false
	}
	if !b.tracker.TryAcquire(mint, now) {
		return false, false
	}
	b.metrics.RecordBackfillAttempt()

	meta := b.agg.ResolveMetadata(ctx, mint)
	if meta.Resolved() {
		b.tracker.Freeze(mint)
		log.WithFields(log.Fields{
			"mint":   mint,
			"name":   meta.Name,
			"symbol": meta.Symbol,
		}).Info("Metadata backfilled")
		return true, true
	}

	state := b.tracker.State(mint)
	if state.Attempts >= b.tracker.MaxAttempts() {
		log.WithFields(log.Fields{
			"mint":     mint,
			"attempts": state.Attempts,
		}).Warn("Metadata still unresolved, giving up automatic retries")
	}
	return true, false
}
