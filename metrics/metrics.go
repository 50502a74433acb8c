// Package metrics exposes Prometheus counters for the relay's message
// and completion paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus instruments for the bot.
type Metrics struct {
	MessagesTotal      *prometheus.CounterVec
	MessagesDropped    prometheus.Counter
	CompletionAttempts prometheus.Counter
	CompletionFailures *prometheus.CounterVec
	CompletionDuration prometheus.Histogram
	LookupFailures     *prometheus.CounterVec
}

// New creates and registers all instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "masterbot_messages_total",
				Help: "Inbound messages handled, by kind (text or command name)",
			},
			[]string{"kind"},
		),
		MessagesDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "masterbot_messages_dropped_total",
				Help: "Messages silently dropped by the per-user debounce",
			},
		),
		CompletionAttempts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "masterbot_completion_requests_total",
				Help: "Completion calls issued (one per inbound message, retries not counted)",
			},
		),
		CompletionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "masterbot_completion_failures_total",
				Help: "Completion calls that failed after retries, by error kind",
			},
			[]string{"kind"},
		),
		CompletionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "masterbot_completion_duration_seconds",
				Help:    "Wall time of completion calls including retries",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		LookupFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "masterbot_lookup_failures_total",
				Help: "Failed market-data or news lookups, by operation",
			},
			[]string{"operation"},
		),
	}
}
