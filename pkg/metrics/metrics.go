// Package metrics exposes the Prometheus collectors for the HTTP front end
// and the JS request engine, following the namespace/subsystem/name
// convention and bucket choices used throughout the teacher codebase's
// internal/app/metrics package.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds this runtime's collectors, kept separate from the default
// global registry so tests can spin up isolated instances.
var Registry = prometheus.NewRegistry()

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nanoserve",
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nanoserve",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled, by tenant and status.",
	}, []string{"tenant", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nanoserve",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests, by tenant.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	}, []string{"tenant"})

	tenantRequests = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nanoserve",
		Subsystem: "tenant",
		Name:      "active_requests",
		Help:      "Current number of in-flight requests per tenant.",
	}, []string{"tenant"})

	tenantCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nanoserve",
		Subsystem: "tenant",
		Name:      "registered_total",
		Help:      "Current number of tenants registered.",
	})

	scriptTimeouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nanoserve",
		Subsystem: "engine",
		Name:      "script_timeouts_total",
		Help:      "Total number of requests terminated by the CPU watchdog.",
	}, []string{"tenant"})
)

func init() {
	Registry.MustRegister(httpInFlight, httpRequests, httpDuration, tenantRequests, tenantCount, scriptTimeouts)
}

// Handler exposes the collectors on an HTTP endpoint (mounted at /metrics).
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps an http.Handler, recording in-flight gauge,
// request counters, and duration histogram, keyed by tenant hostname.
func InstrumentHandler(tenant string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		started := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		httpRequests.WithLabelValues(tenant, strconv.Itoa(sw.status)).Inc()
		httpDuration.WithLabelValues(tenant).Observe(time.Since(started).Seconds())
	})
}

// SetActiveRequests records the current active-request count for a tenant.
func SetActiveRequests(tenant string, n int64) {
	tenantRequests.WithLabelValues(tenant).Set(float64(n))
}

// SetTenantCount records the current tenant registry size.
func SetTenantCount(n int) {
	tenantCount.Set(float64(n))
}

// RecordScriptTimeout increments the watchdog-termination counter for a tenant.
func RecordScriptTimeout(tenant string) {
	scriptTimeouts.WithLabelValues(tenant).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Flush forwards to the wrapped writer when it is an http.Flusher, so a
// streaming response written through InstrumentHandler still flushes.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
