package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics of the SSO bridge.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ProvidersRegistered prometheus.Counter
	LoginsInitiated     *prometheus.CounterVec
	CallbacksConsumed   *prometheus.CounterVec
	UsersProvisioned    prometheus.Counter
	SessionsCleaned     prometheus.Counter
}

// NewMetrics creates and registers all metrics on the given registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssobridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ssobridge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ProvidersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ssobridge_providers_registered_total",
			Help: "Total number of SSO providers registered",
		}),
		LoginsInitiated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssobridge_logins_initiated_total",
				Help: "Total number of SP-initiated login redirects built",
			},
			[]string{"provider_id"},
		),
		CallbacksConsumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssobridge_callbacks_total",
				Help: "Total number of assertion-consumer callbacks by outcome",
			},
			[]string{"provider_id", "status"},
		),
		UsersProvisioned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ssobridge_users_provisioned_total",
			Help: "Total number of users provisioned from SSO logins",
		}),
		SessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ssobridge_sessions_cleaned_total",
			Help: "Total number of expired sessions removed",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ProvidersRegistered,
		m.LoginsInitiated,
		m.CallbacksConsumed,
		m.UsersProvisioned,
		m.SessionsCleaned,
	)
	return m
}

// MetricsHandler returns the scrape endpoint for the given registry.
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware records request counts and latency. The route template is
// used as the path label to keep cardinality bounded.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
