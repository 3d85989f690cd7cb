// Package obs holds prometheus metrics for the API server.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accesshub_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "accesshub_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accesshub_logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)

	tokenRotationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accesshub_token_rotations_total",
			Help: "Access token rotations by result.",
		},
		[]string{"result"},
	)

	accessGrantsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accesshub_access_grants_total",
			Help: "Application access grants by result.",
		},
		[]string{"result"},
	)
)

// Init registers the metrics with the default registry
func Init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		loginsTotal,
		tokenRotationsTotal,
		accessGrantsTotal,
	)
}

// Handler returns the prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountLogin records a login attempt result ("ok" or "failed")
func CountLogin(result string) {
	loginsTotal.WithLabelValues(result).Inc()
}

// CountTokenRotation records a rotation result
func CountTokenRotation(result string) {
	tokenRotationsTotal.WithLabelValues(result).Inc()
}

// CountAccessGrant records an access grant result
func CountAccessGrant(result string) {
	accessGrantsTotal.WithLabelValues(result).Inc()
}

// Instrument measures request counts and latency per chi route pattern
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		status := strconv.Itoa(sw.code)
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
