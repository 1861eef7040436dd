package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Identifiers issued, by counter name and scope kind (daily|monthly|global)
	identifiersIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashwini_identifiers_issued_total",
			Help: "Number of business identifiers issued by the numbering generator",
		},
		[]string{"counter", "scope"},
	)

	counterStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashwini_counter_store_errors_total",
			Help: "Counter store operations that failed",
		},
		[]string{"driver", "op"},
	)

	// Scans finished, by outcome (parsed|failed)
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashwini_lr_scans_total",
			Help: "LR scans processed, partitioned by outcome",
		},
		[]string{"outcome"},
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ashwini_lr_scan_duration_seconds",
			Help:    "Time spent recognising and parsing one LR document",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"method"},
	)

	scanFieldsMissing = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashwini_lr_fields_missing_total",
			Help: "Structured LR fields that did not match in the recognised text",
		},
		[]string{"field"},
	)

	scanQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ashwini_scan_queue_depth",
			Help: "Scans waiting in the background queue",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ashwini_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ashwini_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func IdentifierIssued(counter, scope string) {
	identifiersIssued.WithLabelValues(counter, scope).Inc()
}

func StoreError(driver, op string) {
	counterStoreErrors.WithLabelValues(driver, op).Inc()
}

func ScanFinished(outcome, method string, d time.Duration) {
	scansTotal.WithLabelValues(outcome).Inc()
	if method == "" {
		method = "unknown"
	}
	scanDuration.WithLabelValues(method).Observe(d.Seconds())
}

func FieldMissing(field string) {
	scanFieldsMissing.WithLabelValues(field).Inc()
}

func QueueDepth(n int) {
	scanQueueDepth.Set(float64(n))
}

// HTTP records request count and latency per matched gin route.
func HTTP() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		labels := prometheus.Labels{
			"method": c.Request.Method,
			"route":  route,
			"status": strconv.Itoa(c.Writer.Status()),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
