// Package metrics exposes the Prometheus instrumentation for the
// dataset pipeline and its HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	BatchesTotal        prometheus.Counter
	FilesTotal          *prometheus.CounterVec
	SegmentsTotal       prometheus.Counter
	TranscriptionsTotal *prometheus.CounterVec
	BatchDuration       prometheus.Histogram

	HTTPRequestsTotal *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New registers the metric set on reg. Pass a fresh registry in tests
// to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BatchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataset_batches_total",
			Help: "Number of upload batches processed.",
		}),
		FilesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dataset_files_total",
			Help: "Number of uploaded files by final status.",
		}, []string{"status"}),
		SegmentsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "dataset_segments_total",
			Help: "Number of segments written to datasets.",
		}),
		TranscriptionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dataset_transcriptions_total",
			Help: "Number of transcription calls by outcome.",
		}, []string{"status"}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dataset_batch_duration_seconds",
			Help:    "Wall-clock time spent processing a batch.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route, and status.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// GinMiddleware records request counts and latencies per route
// template, so path parameters do not explode the label space.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
