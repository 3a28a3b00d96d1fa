// Package metrics holds the Prometheus collectors for automation batches and the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the automation engine.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Batch metrics
	RunsTotal          *prometheus.CounterVec
	RunFailuresTotal   *prometheus.CounterVec
	RunDurationSeconds *prometheus.HistogramVec

	// Per-rule metrics
	RuleOutcomesTotal *prometheus.CounterVec
	ActionsTotal      *prometheus.CounterVec

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "automation_runs_total",
				Help: "Total number of automation batches started",
			},
			[]string{"mode"},
		),
		RunFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "automation_run_failures_total",
				Help: "Total number of batches aborted while loading candidate rules",
			},
			[]string{"mode"},
		),
		RunDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "automation_run_duration_seconds",
				Help:    "Wall-clock duration of an automation batch",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"mode"},
		),
		RuleOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "automation_rule_outcomes_total",
				Help: "Per-rule outcomes by status",
			},
			[]string{"status"},
		),
		ActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "automation_actions_total",
				Help: "Executed actions by kind and result",
			},
			[]string{"action", "result"},
		),
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "automation_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "automation_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunFailuresTotal,
		m.RunDurationSeconds,
		m.RuleOutcomesTotal,
		m.ActionsTotal,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records one finished batch.
func (m *Metrics) ObserveRun(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(mode).Inc()
	m.RunDurationSeconds.WithLabelValues(mode).Observe(d.Seconds())
}

// IncRunFailure records a batch that could not load its candidates.
func (m *Metrics) IncRunFailure(mode string) {
	if m == nil {
		return
	}
	m.RunFailuresTotal.WithLabelValues(mode).Inc()
}

// IncRuleOutcome increments the outcome counter for executed/skipped/failed.
func (m *Metrics) IncRuleOutcome(status string) {
	if m == nil {
		return
	}
	m.RuleOutcomesTotal.WithLabelValues(status).Inc()
}

// IncAction counts an action attempt; result is "success" or "failed".
func (m *Metrics) IncAction(action, result string) {
	if m == nil {
		return
	}
	m.ActionsTotal.WithLabelValues(action, result).Inc()
}
