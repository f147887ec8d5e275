package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Attempt outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Metrics holds the router's prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	attemptsTotal    *prometheus.CounterVec
	probesTotal      *prometheus.CounterVec
	exhaustedTotal   prometheus.Counter
	healthyProviders prometheus.Gauge
	stageDuration    *prometheus.HistogramVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodegate",
			Name:      "upstream_attempts_total",
			Help:      "Request attempts against upstream providers by outcome.",
		}, []string{"provider", "outcome"}),
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nodegate",
			Name:      "health_probes_total",
			Help:      "Health probes by provider and result.",
		}, []string{"provider", "result"}),
		exhaustedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nodegate",
			Name:      "upstream_exhausted_total",
			Help:      "Logical calls that failed on every ranked candidate.",
		}),
		healthyProviders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nodegate",
			Name:      "healthy_providers",
			Help:      "Providers currently marked healthy.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nodegate",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}

	m.registry.MustRegister(
		m.attemptsTotal,
		m.probesTotal,
		m.exhaustedTotal,
		m.healthyProviders,
		m.stageDuration,
	)
	return m
}

// Handler serves the collectors for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAttempt counts one request attempt against a provider
func (m *Metrics) RecordAttempt(provider, outcome string) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordProbe counts one health probe result
func (m *Metrics) RecordProbe(provider string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "fail"
	}
	m.probesTotal.WithLabelValues(provider, result).Inc()
}

// RecordExhausted counts one fully exhausted logical call
func (m *Metrics) RecordExhausted() {
	if m == nil {
		return
	}
	m.exhaustedTotal.Inc()
}

// SetHealthyProviders updates the healthy provider gauge
func (m *Metrics) SetHealthyProviders(n int) {
	if m == nil {
		return
	}
	m.healthyProviders.Set(float64(n))
}

// ObserveStage records one stage duration
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
