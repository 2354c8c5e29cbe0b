package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pagegate"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Guard metrics
	GuardDecisions *prometheus.CounterVec

	// Credential metrics
	Redemptions *prometheus.CounterVec
	AdminLogins *prometheus.CounterVec
	TokenOps    *prometheus.CounterVec

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with the application collectors plus the
// Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		GuardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "decisions_total",
			Help:      "Access guard decisions by request class and outcome.",
		}, []string{"class", "outcome"}),
		Redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "redemptions_total",
			Help:      "Invitation token redemption attempts by result.",
		}, []string{"result"}),
		AdminLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admin",
			Name:      "logins_total",
			Help:      "Admin login attempts by result.",
		}, []string{"result"}),
		TokenOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "admin_operations_total",
			Help:      "Token registry operations by operation and result.",
		}, []string{"op", "result"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		r.GuardDecisions,
		r.Redemptions,
		r.AdminLogins,
		r.TokenOps,
		r.RequestsTotal,
		r.RequestDuration,
	)
	return r
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Handler serves the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler serves this registry in Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registerer exposes the underlying registry for extra collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for tests and push gateways.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordGuardDecision counts one guard decision. A nil registry is a no-op.
func (r *Registry) RecordGuardDecision(class, outcome string) {
	if r == nil {
		return
	}
	r.GuardDecisions.WithLabelValues(class, outcome).Inc()
}

// RecordRedemption counts one redemption attempt.
func (r *Registry) RecordRedemption(result string) {
	if r == nil {
		return
	}
	r.Redemptions.WithLabelValues(result).Inc()
}

// RecordAdminLogin counts one admin login attempt.
func (r *Registry) RecordAdminLogin(result string) {
	if r == nil {
		return
	}
	r.AdminLogins.WithLabelValues(result).Inc()
}

// RecordTokenOp counts one token registry operation.
func (r *Registry) RecordTokenOp(op, result string) {
	if r == nil {
		return
	}
	r.TokenOps.WithLabelValues(op, result).Inc()
}

// RecordRequest counts one HTTP request.
func (r *Registry) RecordRequest(method, status string) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, status).Inc()
}

// ObserveRequestDuration records the latency of one HTTP request.
func (r *Registry) ObserveRequestDuration(method string, seconds float64) {
	if r == nil {
		return
	}
	r.RequestDuration.WithLabelValues(method).Observe(seconds)
}
