// Package metrics exposes Prometheus metrics of the geometry service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Collector holds the service metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// generation
	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	stageDuration      *prometheus.HistogramVec
	meshTriangles      *prometheus.HistogramVec

	// cache
	cacheRequests *prometheus.CounterVec

	// pool
	poolActive   prometheus.Gauge
	poolRejected prometheus.Counter

	logger *zap.Logger
}

// NewCollector creates a collector. Process and Go runtime metrics are included.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.generationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Geometry generations by part, family and outcome kind",
		},
		[]string{"part", "family", "outcome"},
	)

	c.generationDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "End to end generation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"part", "family"},
	)

	c.stageDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"stage"},
	)

	c.meshTriangles = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mesh_triangles",
			Help:      "Triangles per exported mesh",
			Buckets:   prometheus.ExponentialBuckets(1000, 4, 8),
		},
		[]string{"part"},
	)

	c.cacheRequests = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Mesh cache requests by outcome (hit, miss, shared)",
		},
		[]string{"outcome"},
	)

	c.poolActive = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_active_workers",
		Help:      "Geometry computations currently running",
	})

	c.poolRejected = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pool_rejected_total",
		Help:      "Computations rejected because the queue was full",
	})

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordHTTPRequest records an HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGeneration records a finished generation. outcome is "ok" or an error kind.
func (c *Collector) RecordGeneration(part, family, outcome string, duration time.Duration) {
	c.generationsTotal.WithLabelValues(part, family, outcome).Inc()
	c.generationDuration.WithLabelValues(part, family).Observe(duration.Seconds())
}

// RecordStage records the duration of one pipeline stage.
func (c *Collector) RecordStage(stage string, duration time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordMesh records the size of an exported mesh.
func (c *Collector) RecordMesh(part string, triangles int) {
	c.meshTriangles.WithLabelValues(part).Observe(float64(triangles))
}

// RecordCache records how a request was served by the mesh cache.
func (c *Collector) RecordCache(outcome string) {
	c.cacheRequests.WithLabelValues(outcome).Inc()
}

// SetPoolActive sets the number of running computations.
func (c *Collector) SetPoolActive(n int) {
	c.poolActive.Set(float64(n))
}

// RecordPoolRejection counts a rejected computation.
func (c *Collector) RecordPoolRejection() {
	c.poolRejected.Inc()
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
