package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bolletta",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bolletta",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// Sync metrics
	syncPassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bolletta",
			Subsystem: "sync",
			Name:      "passes_total",
			Help:      "Total number of sync passes",
		},
		[]string{"status"},
	)

	syncPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bolletta",
			Subsystem: "sync",
			Name:      "pass_duration_seconds",
			Help:      "Duration of a full sync pass in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	invoicesSyncedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bolletta",
			Subsystem: "sync",
			Name:      "invoices_synced_total",
			Help:      "Invoices stored to the document store",
		},
		[]string{"provider"},
	)

	invoicesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bolletta",
			Subsystem: "sync",
			Name:      "invoices_skipped_total",
			Help:      "Invoices skipped because the artifact already existed",
		},
		[]string{"provider"},
	)

	providerFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bolletta",
			Subsystem: "sync",
			Name:      "provider_failures_total",
			Help:      "Provider pass failures by error code",
		},
		[]string{"provider", "code"},
	)
)

// RecordSyncPass records the outcome and duration of a sync pass
func RecordSyncPass(status string, duration time.Duration) {
	syncPassesTotal.WithLabelValues(status).Inc()
	syncPassDuration.Observe(duration.Seconds())
}

// RecordInvoiceSynced increments the synced invoice counter for a provider
func RecordInvoiceSynced(provider string) {
	invoicesSyncedTotal.WithLabelValues(provider).Inc()
}

// RecordInvoiceSkipped increments the duplicate-skip counter for a provider
func RecordInvoiceSkipped(provider string) {
	invoicesSkippedTotal.WithLabelValues(provider).Inc()
}

// RecordProviderFailure increments the provider failure counter
func RecordProviderFailure(provider, code string) {
	providerFailuresTotal.WithLabelValues(provider, code).Inc()
}

// Handler returns the prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder captures the response status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware instruments HTTP handlers with request metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		status := strconv.Itoa(rec.status)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
	})
}
