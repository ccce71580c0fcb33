// Package metrics holds the Prometheus collectors for publish outcomes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeInvalid = "invalid"
)

// Metrics records publish counts and latencies.
type Metrics struct {
	published *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	gatherer  prometheus.Gatherer
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ntfy",
			Name:      "publish_total",
			Help:      "Publish attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ntfy",
			Name:      "publish_duration_seconds",
			Help:      "Time spent waiting on the ntfy server per publish.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		gatherer: reg,
	}
	reg.MustRegister(m.published, m.duration)
	return m
}

// NewDefault registers the collectors on a fresh registry together with the
// Go runtime and process collectors.
func NewDefault() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return New(reg), reg
}

// ObservePublish counts one attempt. Invalid payloads never reach the
// server so no latency is recorded for them.
func (m *Metrics) ObservePublish(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(source, outcome).Inc()
	if outcome != OutcomeInvalid {
		m.duration.WithLabelValues(source).Observe(elapsed.Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
