package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Общие HTTP-метрики
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
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets, // [0.005..10]
		},
		[]string{"method", "path", "status"},
	)
)

// Domain metrics.
var (
	contractsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "contracts_created_total",
		Help: "Contracts persisted from a finished wizard.",
	})

	contractsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "contracts_deleted_total",
		Help: "Contracts deleted from the dashboard.",
	})

	planLimitDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_limit_denials_total",
			Help: "Contract creation attempts refused by the plan limit.",
		},
		[]string{"plan"},
	)

	signIns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_sign_ins_total",
			Help: "Sign-in attempts by outcome.",
		},
		[]string{"outcome"},
	)

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the last readiness check passed.",
	})
)

// Init registers all metrics in the default registry. Call once per process.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		contractsCreated, contractsDeleted, planLimitDenials, signIns, ready,
	)
}

// Handler exposes the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordContractCreated() { contractsCreated.Inc() }
func RecordContractDeleted() { contractsDeleted.Inc() }

// RecordPlanDenial counts a creation attempt refused for the given plan tier.
func RecordPlanDenial(plan string) {
	if plan == "" {
		plan = "unknown"
	}
	planLimitDenials.WithLabelValues(plan).Inc()
}

// RecordSignIn counts a sign-in attempt; outcome is "ok", "invalid" or "error".
func RecordSignIn(outcome string) { signIns.WithLabelValues(outcome).Inc() }

// SetReady mirrors the readiness state into the service_ready gauge.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// Instrument measures RPS, latency and in-flight requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses contract identifiers so label cardinality stays bounded.
func CanonicalPath(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return "/"
	}
	const prefix = "/v1/contracts/"
	if !strings.HasPrefix(raw, prefix) {
		return raw
	}
	parts := strings.Split(strings.TrimPrefix(raw, prefix), "/")
	switch {
	case len(parts) == 1 && parts[0] == "export":
		return raw
	case len(parts) == 1 && parts[0] != "":
		return prefix + ":id"
	case len(parts) == 2 && parts[0] != "" && parts[1] == "artifact":
		return prefix + ":id/artifact"
	}
	return raw
}

// statusWriter records the response code for the request metrics.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps Server-Sent Events working through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
