package wrap

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics returns middleware recording request counts and latencies per
// route name, method and status on reg, and failures by how they ended:
//
//	wrap_requests_total{route,method,status}
//	wrap_request_duration_seconds{route,method}
//	wrap_failures_total{route,outcome,cause}
//
// It panics if the collectors are already registered on reg.
func Metrics(reg prometheus.Registerer) Middleware {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrap_requests_total",
			Help: "Total number of HTTP requests served by routed handlers.",
		},
		[]string{"route", "method", "status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wrap_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrap_failures_total",
			Help: "Failed requests by outcome and root cause type.",
		},
		[]string{"route", "outcome", "cause"},
	)
	reg.MustRegister(requests, duration, failures)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			note, r := trackOutcome(r)
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			route := RouteName(r)
			requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.Status())).Inc()
			duration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
			if note.kind != OutcomeOK {
				failures.WithLabelValues(route, string(note.kind), note.cause).Inc()
			}
		})
	}
}

// MetricsHandler exposes the metrics gathered by g in the Prometheus text
// format.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
