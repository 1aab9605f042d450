package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.ProvidersRegistered.Inc()
	metrics.LoginsInitiated.WithLabelValues("acme").Inc()
	metrics.CallbacksConsumed.WithLabelValues("acme", "ok").Inc()
	metrics.UsersProvisioned.Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ProvidersRegistered))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.LoginsInitiated.WithLabelValues("acme")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CallbacksConsumed.WithLabelValues("acme", "ok")))
}

func TestHTTPMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	handler := metrics.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(
		metrics.HTTPRequestsTotal.WithLabelValues("GET", "/health", "201")))
}

func TestMetricsHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.ProvidersRegistered.Inc()

	w := httptest.NewRecorder()
	MetricsHandler(registry).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ssobridge_providers_registered_total 1")
}
