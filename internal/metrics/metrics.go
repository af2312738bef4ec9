// Package metrics exposes Prometheus counters and histograms for the
// tick/workflow pipeline, registered via promauto like the teacher's
// metrics package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus instrument this module registers.
type Metrics struct {
	TicksTotal          prometheus.Counter
	InstrumentsByOutcome *prometheus.CounterVec
	ActionsByKind       *prometheus.CounterVec
	AdapterRetries      prometheus.Counter
	RateLimitWaitSeconds prometheus.Histogram
	AlertFailures       prometheus.Counter
	TickDurationSeconds prometheus.Histogram
}

// New registers metrics against the default registerer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers metrics against registerer, letting tests use
// an isolated registry instead of the process-global default.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		TicksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tick_total",
			Help: "Total number of ticks executed",
		}),
		InstrumentsByOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instrument_outcome_total",
			Help: "Per-instrument outcomes (managed, skipped, error)",
		}, []string{"symbol", "outcome"}),
		ActionsByKind: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_action_total",
			Help: "Engine actions emitted, by kind",
		}, []string{"symbol", "kind"}),
		AdapterRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "adapter_retries_total",
			Help: "Total number of adapter request retries",
		}),
		RateLimitWaitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rate_limit_wait_seconds",
			Help:    "Time spent waiting for a rate-limit token",
			Buckets: prometheus.DefBuckets,
		}),
		AlertFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "alert_failures_total",
			Help: "Total number of alert events that failed to persist to the audit store",
		}),
		TickDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tick_duration_seconds",
			Help:    "Wall-clock duration of a full tick across all instruments",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
