package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	sessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_events_total",
			Help: "Session manager operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	reconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_runs_total",
			Help: "Collection reconciliations by collection and outcome.",
		},
		[]string{"collection", "outcome"},
	)

	reconcileChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_changes_total",
			Help: "Child rows touched by reconciliation, by change kind.",
		},
		[]string{"collection", "change"},
	)
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		sessionEvents, reconcileRuns, reconcileChanges,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request count, latency and in-flight gauge. The route
// label is the chi route pattern so path parameters do not explode cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

func SessionEvent(operation string, outcome string) {
	sessionEvents.WithLabelValues(operation, outcome).Inc()
}

func ReconcileRun(collection string, outcome string) {
	reconcileRuns.WithLabelValues(collection, outcome).Inc()
}

func ReconcileChanges(collection string, created int, updated int, deleted int64) {
	reconcileChanges.WithLabelValues(collection, "created").Add(float64(created))
	reconcileChanges.WithLabelValues(collection, "updated").Add(float64(updated))
	reconcileChanges.WithLabelValues(collection, "deleted").Add(float64(deleted))
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
