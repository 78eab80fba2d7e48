package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "imagegen"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "In-flight HTTP requests",
		},
	)

	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Calls to the image search API by outcome",
		},
		[]string{"operation", "outcome"},
	)

	upstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Image search API latency in seconds",
			// Generation can take minutes
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"operation"},
	)

	generatedImages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generated_images",
			Help:      "Number of result images per successful generation",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		},
	)

	serverLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "server_limited_total",
			Help:      "Generations where the API returned fewer images than requested",
		},
	)

	validationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Rejected generation requests by field",
		},
		[]string{"field"},
	)

	apiURLChangesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_url_changes_total",
			Help:      "Successful runtime changes of the upstream API URL",
		},
	)
)

// Upstream outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeAPIError    = "api_error"
	OutcomeUnreachable = "unreachable"
	OutcomeInvalid     = "invalid_response"
)

func HttpRequestsTotal(method, path string, code int) {
	httpRequestsTotal.With(prometheus.Labels{
		"method": method,
		"path":   path,
		"code":   strconv.Itoa(code),
	}).Inc()
}

func HttpRequestDuration(method, path string, duration time.Duration) {
	httpRequestDuration.With(prometheus.Labels{
		"method": method,
		"path":   path,
	}).Observe(duration.Seconds())
}

// UpstreamRequest records one call to the image search API.
func UpstreamRequest(operation, outcome string, duration time.Duration) {
	upstreamRequestsTotal.With(prometheus.Labels{
		"operation": operation,
		"outcome":   outcome,
	}).Inc()
	upstreamDuration.With(prometheus.Labels{"operation": operation}).Observe(duration.Seconds())
}

// GeneratedImages records the result count of a successful generation.
func GeneratedImages(n int, limited bool) {
	generatedImages.Observe(float64(n))
	if limited {
		serverLimitedTotal.Inc()
	}
}

func ValidationFailure(field string) {
	validationFailuresTotal.With(prometheus.Labels{"field": field}).Inc()
}

func APIURLChanged() {
	apiURLChangesTotal.Inc()
}

// Middleware counts and times every request. The path label is the chi
// route pattern so /create/{apiName} stays one series.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInflight.Inc()
		defer httpInflight.Dec()

		start := time.Now()
		sw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := routePatternOrPath(r)
		HttpRequestsTotal(r.Method, path, sw.status)
		HttpRequestDuration(r.Method, path, time.Since(start))
	})
}

// routePatternOrPath returns the chi route pattern if available, otherwise
// the URL path.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

type statusResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusResponseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
