package schedule

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"poolwatch/internal/enrich"
	"poolwatch/internal/observability"
)

// CompletenessSweep re-runs the gated enrichment checks for every mint
type CompletenessSweep struct {
	agg       *enrich.Aggregator
	publisher Publisher
	metrics   *observability.Metrics
}

// NewCompletenessSweep creates the job. publisher may be nil.
func NewCompletenessSweep(agg *enrich.Aggregator, publisher Publisher, metrics *observability.Metrics) *CompletenessSweep {
	return &CompletenessSweep{
		agg:       agg,
		publisher: publisher,
		metrics:   metrics,
	}
}

// Name implements Job
func (w *CompletenessSweep) Name() string {
	return "completeness_sweep"
}

// Run makes one pass over every mint
func (w *CompletenessSweep) Run(ctx context.Context) {
	started := time.Now()
	defer w.metrics.RecordJobRun(w.Name(), started)

	updated := 0
	for _, mint := range w.agg.Store().Mints() {
		if ctx.Err() != nil {
			return
		}
		if w.agg.Enrich(ctx, mint).Changed() {
			updated++
		}
	}

	if updated > 0 {
		log.WithFields(log.Fields{
			"updated": updated,
		}).Debug("Completeness sweep filled gaps")
	}
	if w.publisher != nil {
		w.publisher.Publish(ctx)
	}
}
