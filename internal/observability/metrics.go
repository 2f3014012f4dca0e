// Package observability provides Prometheus metrics for the discovery pipeline.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "poolwatch"

// Outcome labels
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds all Prometheus metrics of the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Discovery metrics
	LogEvents       *prometheus.CounterVec
	PoolsDiscovered prometheus.Counter
	TokensCreated   prometheus.Counter
	DiscoveryErrors *prometheus.CounterVec

	// Enrichment metrics
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	MetadataResolves *prometheus.CounterVec
	BackfillAttempts prometheus.Counter

	// Scheduler metrics
	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec

	// Publishing metrics
	SnapshotsPublished prometheus.Counter
	SnapshotSize       prometheus.Gauge
	SinkErrors         *prometheus.CounterVec
	WSClients          prometheus.Gauge
}

// NewMetrics creates a Metrics instance on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		LogEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "log_events_total",
			Help:      "Program log notifications received, by outcome",
		}, []string{"outcome"}),
		PoolsDiscovered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "pools_discovered_total",
			Help:      "Pool creations successfully parsed",
		}),
		TokensCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "tokens_created_total",
			Help:      "Mints recorded for the first time",
		}),
		DiscoveryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "errors_total",
			Help:      "Discovery events dropped, by stage",
		}, []string{"stage"}),

		ProviderRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "provider_requests_total",
			Help:      "External data source calls, by provider and outcome",
		}, []string{"provider", "outcome"}),
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "provider_latency_seconds",
			Help:      "External data source call latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		MetadataResolves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "resolutions_total",
			Help:      "Metadata resolutions, by result",
		}, []string{"result"}),
		BackfillAttempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metadata",
			Name:      "backfill_attempts_total",
			Help:      "Automatic metadata refetch attempts",
		}),

		JobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "job_runs_total",
			Help:      "Reconciliation job runs",
		}, []string{"job"}),
		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "job_duration_seconds",
			Help:      "Reconciliation job duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),

		SnapshotsPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "published_total",
			Help:      "Snapshots emitted to sinks",
		}),
		SnapshotSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "tokens",
			Help:      "Tokens in the latest snapshot",
		}),
		SinkErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "sink_errors_total",
			Help:      "Snapshot delivery failures, by sink",
		}, []string{"sink"}),
		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "ws_clients",
			Help:      "Connected websocket subscribers",
		}),
	}
}

// Registry returns the registry backing m
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterGauge exposes a value computed at scrape time, e.g. a store size
func (m *Metrics) RegisterGauge(subsystem, name, help string, fn func() float64) {
	if m == nil {
		return
	}
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, fn)
}

// RecordLogEvent counts a received log notification
func (m *Metrics) RecordLogEvent(outcome string) {
	if m == nil {
		return
	}
	m.LogEvents.WithLabelValues(outcome).Inc()
}

// RecordPoolDiscovered counts a parsed pool and the mints it created
func (m *Metrics) RecordPoolDiscovered(newTokens int) {
	if m == nil {
		return
	}
	m.PoolsDiscovered.Inc()
	m.TokensCreated.Add(float64(newTokens))
}

// RecordDiscoveryError counts a dropped discovery event
func (m *Metrics) RecordDiscoveryError(stage string) {
	if m == nil {
		return
	}
	m.DiscoveryErrors.WithLabelValues(stage).Inc()
}

// RecordProvider records one external call
func (m *Metrics) RecordProvider(provider string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.ProviderRequests.WithLabelValues(provider, outcome).Inc()
	m.ProviderLatency.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}

// RecordMetadataResolve counts a resolution by result
func (m *Metrics) RecordMetadataResolve(result string) {
	if m == nil {
		return
	}
	m.MetadataResolves.WithLabelValues(result).Inc()
}

// RecordBackfillAttempt counts an automatic refetch
func (m *Metrics) RecordBackfillAttempt() {
	if m == nil {
		return
	}
	m.BackfillAttempts.Inc()
}

// RecordJobRun records a scheduler run
func (m *Metrics) RecordJobRun(job string, started time.Time) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job).Inc()
	m.JobDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
}

// RecordSnapshot records an emitted snapshot
func (m *Metrics) RecordSnapshot(size int) {
	if m == nil {
		return
	}
	m.SnapshotsPublished.Inc()
	m.SnapshotSize.Set(float64(size))
}

// RecordSinkError counts a failed delivery
func (m *Metrics) RecordSinkError(sink string) {
	if m == nil {
		return
	}
	m.SinkErrors.WithLabelValues(sink).Inc()
}

// SetWSClients sets the connected subscriber gauge
func (m *Metrics) SetWSClients(n int) {
	if m == nil {
		return
	}
	m.WSClients.Set(float64(n))
}
