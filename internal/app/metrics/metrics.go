package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gigledger",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gigledger",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gigledger",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	limitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gigledger",
			Subsystem: "limits",
			Name:      "rejections_total",
			Help:      "Total number of creations blocked by plan limits.",
		},
		[]string{"resource", "tier"},
	)

	defaultsResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gigledger",
			Subsystem: "defaults",
			Name:      "resolutions_total",
			Help:      "Total number of entry-form default resolutions by winning rule.",
		},
		[]string{"field", "source"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gigledger",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	onboardings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gigledger",
			Subsystem: "onboarding",
			Name:      "completions_total",
			Help:      "Total number of onboarding attempts by outcome.",
		},
		[]string{"outcome"},
	)

	exportRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gigledger",
			Subsystem: "exports",
			Name:      "runs_total",
			Help:      "Total number of export runs by outcome.",
		},
		[]string{"outcome"},
	)

	digestRuns = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gigledger",
			Subsystem: "digest",
			Name:      "run_duration_seconds",
			Help:      "Duration of weekly digest sweeps.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		limitRejections,
		defaultsResolutions,
		cacheLookups,
		onboardings,
		exportRuns,
		digestRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordLimitRejection counts a creation blocked by the plan limit table.
func RecordLimitRejection(resource, tier string) {
	if resource == "" {
		resource = "unknown"
	}
	limitRejections.WithLabelValues(resource, tier).Inc()
}

// RecordDefaultResolution counts a resolved entry-form default by the rule
// that produced it (preference, only, flag, frequency, none).
func RecordDefaultResolution(field, source string) {
	defaultsResolutions.WithLabelValues(field, source).Inc()
}

// RecordCacheLookup counts a cache lookup outcome (hit or miss).
func RecordCacheLookup(outcome string) {
	cacheLookups.WithLabelValues(outcome).Inc()
}

// RecordOnboarding counts an onboarding attempt outcome.
func RecordOnboarding(outcome string) {
	onboardings.WithLabelValues(outcome).Inc()
}

// RecordExportRun counts an export attempt outcome.
func RecordExportRun(outcome string) {
	exportRuns.WithLabelValues(outcome).Inc()
}

// RecordDigestRun records a weekly digest sweep.
func RecordDigestRun(duration time.Duration, success bool) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	result := "false"
	if success {
		result = "true"
	}
	digestRuns.WithLabelValues(result).Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "me" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/me"
	}
	resource := parts[1]
	if len(parts) == 2 {
		return "/me/" + resource
	}
	return "/me/" + resource + "/:id"
}
