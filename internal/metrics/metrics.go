// Package metrics holds the Prometheus collectors the server exposes on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the collectors. Each server gets its own registry so tests
// can build many servers without duplicate-registration panics.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	Reservations        *prometheus.CounterVec
	RateLimited         *prometheus.CounterVec
	AuditEntriesDeleted prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gthanks",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gthanks",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gthanks",
			Name:      "reservations_total",
			Help:      "Reservation attempts by outcome (created, conflict, forbidden, not_found, invalid, error, removed).",
		}, []string{"outcome"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gthanks",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by scope.",
		}, []string{"scope"}),
		AuditEntriesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gthanks",
			Name:      "audit_entries_deleted_total",
			Help:      "Audit rows removed by the cleanup job.",
		}),
	}

	m.Registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.Reservations,
		m.RateLimited,
		m.AuditEntriesDeleted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ReservationOutcome records one reservation attempt.
func (m *Metrics) ReservationOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Reservations.WithLabelValues(outcome).Inc()
}
