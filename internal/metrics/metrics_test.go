package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New()
	require.NotNil(t, m)
	assert.NotNil(t, m.Registry())
	assert.NotNil(t, m.RunsTotal)
	assert.NotNil(t, m.RuleOutcomesTotal)
	assert.NotNil(t, m.ActionsTotal)
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveRun("check_all", 150*time.Millisecond)
	m.ObserveRun("check_all", 20*time.Millisecond)
	m.IncRunFailure("check_user")
	m.IncRuleOutcome("executed")
	m.IncRuleOutcome("skipped")
	m.IncRuleOutcome("skipped")
	m.IncAction("pause_campaign", "success")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("check_all")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunFailuresTotal.WithLabelValues("check_user")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RuleOutcomesTotal.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionsTotal.WithLabelValues("pause_campaign", "success")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveRun("check_all", time.Second)
		m.IncRunFailure("check_all")
		m.IncRuleOutcome("failed")
		m.IncAction("create_alert", "failed")
	})

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHTTPMiddleware(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.HTTPMiddleware)
	r.Get("/rules/{ruleId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/rules/8d3c2a51-2f0e-4f4a-9a3e-0c1f6f1b2c3d", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("GET", "/rules/{ruleId}", "418")))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "automation_api_requests_total"))
}
