package internal

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"transport-vendor-api/pkg/importer"
)

// Metrics provides Prometheus metrics for HTTP requests, imports and database
// outages
type Metrics struct {
	reqTotal    *prometheus.CounterVec
	reqLatency  *prometheus.HistogramVec
	importRuns  *prometheus.CounterVec
	importRows  *prometheus.CounterVec
	storeOutage *prometheus.CounterVec
	registry    *prometheus.Registry
}

// NewMetrics creates a new Metrics instance with a private Prometheus registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		reqTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		reqLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		importRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vendor_import_runs_total",
				Help: "Vendor import runs by outcome",
			},
			[]string{"outcome"},
		),
		importRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vendor_import_rows_total",
				Help: "Vendor import rows by result",
			},
			[]string{"result"},
		),
		storeOutage: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vendor_store_unavailable_total",
				Help: "Requests that failed because the database was unreachable",
			},
			[]string{"cause"},
		),
		registry: registry,
	}

	registry.MustRegister(m.reqTotal, m.reqLatency, m.importRuns, m.importRows, m.storeOutage)
	return m
}

// Middleware returns a Chi middleware that collects metrics
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

			next.ServeHTTP(rw, r)

			// route pattern keeps the label set bounded
			path := r.URL.Path
			if chiCtx := chi.RouteContext(r.Context()); chiCtx != nil {
				if p := chiCtx.RoutePattern(); p != "" {
					path = p
				}
			}

			status := http.StatusText(rw.code)
			m.reqTotal.WithLabelValues(r.Method, path, status).Inc()
			m.reqLatency.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		})
	}
}

// ObserveImport records one import run.
func (m *Metrics) ObserveImport(sum importer.Summary, err error) {
	switch {
	case err != nil:
		m.importRuns.WithLabelValues("rejected").Inc()
		return
	case sum.DryRun:
		m.importRuns.WithLabelValues("dry_run").Inc()
	default:
		m.importRuns.WithLabelValues("ok").Inc()
	}
	m.importRows.WithLabelValues("imported").Add(float64(sum.Imported))
	m.importRows.WithLabelValues("failed").Add(float64(len(sum.Errors)))
}

// ObserveStoreUnavailable counts a request that hit an unreachable database.
func (m *Metrics) ObserveStoreUnavailable(cause string) {
	m.storeOutage.WithLabelValues(cause).Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the HTTP status code for metrics
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}
