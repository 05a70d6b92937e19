package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/autosales/internal/ratelimit"
)

var _ ratelimit.Observer = (*Metrics)(nil)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsHandlerExposesRuntimeMetrics(t *testing.T) {
	body := scrape(t, NewMetrics())
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, "autosales_ratelimit_degraded 0")
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `autosales_http_requests_total{code="418",route="/test"} 1`)
	assert.Contains(t, body, `autosales_http_request_duration_seconds_bucket{route="/test"`)
}

func TestRateLimitObserver(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveDecision("auth", true)
	metrics.ObserveDecision("auth", true)
	metrics.ObserveDecision("auth", false)
	metrics.SetDegraded(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.rateDecisions.WithLabelValues("auth", "allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.rateDecisions.WithLabelValues("auth", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.rateDegraded))

	metrics.SetDegraded(false)
	assert.True(t, strings.Contains(scrape(t, metrics), "autosales_ratelimit_degraded 0"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveDecision("default", true)
	metrics.SetDegraded(true)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, metrics.Middleware(next))

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
