// Package metrics holds the Prometheus collectors for the console.
// Every method is safe on a nil *Metrics so callers can run uninstrumented.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "compasshub"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	slowRequests     prometheus.Counter
	queryDuration    *prometheus.HistogramVec
	slowQueries      prometheus.Counter
	loginAttempts    *prometheus.CounterVec
	permissionDenied *prometheus.CounterVec
	followUpEmails   *prometheus.CounterVec
}

// New creates a registry with Go and process collectors plus the console metrics.
// POST: every collector is registered on m.Registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the console metrics on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{Registry: reg}

	m.requestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	m.slowRequests = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_slow_requests_total",
			Help:      "requests slower than the configured threshold",
		},
	)
	m.queryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "database call latency by operation",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"op"},
	)
	m.slowQueries = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_slow_queries_total",
			Help:      "database calls slower than the configured threshold",
		},
	)
	m.loginAttempts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "login attempts by outcome",
		},
		[]string{"outcome"},
	)
	m.permissionDenied = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permission_denied_total",
			Help:      "requests refused for a missing capability",
		},
		[]string{"capability"},
	)
	m.followUpEmails = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "followup_emails_total",
			Help:      "follow-up notification emails by outcome",
		},
		[]string{"outcome"},
	)
	return m
}

// ObserveQuery records one database call. Satisfies storage.QueryObserver.
func (m *Metrics) ObserveQuery(op string, d time.Duration, slow bool) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(op).Observe(d.Seconds())
	if slow {
		m.slowQueries.Inc()
	}
}

// ObserveRequest records one HTTP request. An empty route is reported as "unmatched".
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration, slow bool) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
	if slow {
		m.slowRequests.Inc()
	}
}

// LoginAttempt counts a login by outcome.
func (m *Metrics) LoginAttempt(ok bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.loginAttempts.WithLabelValues(outcome).Inc()
}

// PermissionDenied counts a refused capability check.
func (m *Metrics) PermissionDenied(capability string) {
	if m == nil {
		return
	}
	m.permissionDenied.WithLabelValues(capability).Inc()
}

// EmailSent counts a follow-up notification by outcome ("sent", "failed", "skipped").
func (m *Metrics) EmailSent(outcome string) {
	if m == nil {
		return
	}
	m.followUpEmails.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
