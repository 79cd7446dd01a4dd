package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "chatrelay"

// Metrics records chat outcomes in Prometheus.
//
// Metrics:
//   - chatrelay_provider_attempts_total: provider calls by provider and outcome
//   - chatrelay_provider_latency_seconds: provider call latency
//   - chatrelay_chat_results_total: final chat results by source tag
type Metrics struct {
	registry *prometheus.Registry
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	results  *prometheus.CounterVec
}

// NewMetrics creates the chat metrics and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "provider_attempts_total",
				Help:      "Total number of provider calls by outcome",
			},
			[]string{"provider", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "provider_latency_seconds",
				Help:      "Provider call latency in seconds, retries included",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"provider"},
		),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "chat_results_total",
				Help:      "Total number of chat results by source",
			},
			[]string{"source"},
		),
	}

	m.registry.MustRegister(m.attempts, m.latency, m.results)

	return m
}

// RecordAttempt counts one provider call and observes its latency.
func (m *Metrics) RecordAttempt(provider, outcome string, elapsed time.Duration) {
	m.attempts.WithLabelValues(provider, outcome).Inc()
	m.latency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// RecordResult counts one chat result by source tag.
func (m *Metrics) RecordResult(source string) {
	m.results.WithLabelValues(source).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Results returns the result counter, for tests.
func (m *Metrics) Results() *prometheus.CounterVec {
	return m.results
}

// Attempts returns the attempt counter, for tests.
func (m *Metrics) Attempts() *prometheus.CounterVec {
	return m.attempts
}
