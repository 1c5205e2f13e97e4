// Package metrics exposes Prometheus metrics for publish attempts, container
// polling, Graph API calls and inbound HTTP requests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OutcomeSuccess labels a call that completed without error
const OutcomeSuccess = "success"

// Collector records publisher metrics on its own registry. A nil *Collector
// is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	publishTotal    *prometheus.CounterVec
	publishDuration prometheus.Histogram
	publishInFlight prometheus.Gauge
	pollsTotal      *prometheus.CounterVec
	graphRequests   *prometheus.CounterVec
	graphDuration   *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewCollector creates a collector with Go runtime and process collectors
// already registered
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		publishTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igpublisher_publish_total",
				Help: "Total number of publish attempts by outcome",
			},
			[]string{"outcome"},
		),
		publishDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "igpublisher_publish_duration_seconds",
				Help:    "End to end publish duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
		),
		publishInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "igpublisher_publish_in_flight",
				Help: "Number of publish attempts currently running",
			},
		),
		pollsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igpublisher_container_polls_total",
				Help: "Total number of container status polls by observed status",
			},
			[]string{"status"},
		),
		graphRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igpublisher_graph_requests_total",
				Help: "Total number of Graph API requests",
			},
			[]string{"operation", "outcome"},
		),
		graphDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "igpublisher_graph_request_duration_seconds",
				Help:    "Graph API request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igpublisher_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "igpublisher_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"method", "path"},
		),
	}
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// PublishStarted marks one more publish attempt as running
func (c *Collector) PublishStarted() {
	if c == nil {
		return
	}
	c.publishInFlight.Inc()
}

// PublishFinished records the outcome of a publish attempt. outcome is
// OutcomeSuccess or the error type.
func (c *Collector) PublishFinished(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.publishInFlight.Dec()
	c.publishTotal.WithLabelValues(outcome).Inc()
	c.publishDuration.Observe(d.Seconds())
}

// RecordPoll counts a container status observation
func (c *Collector) RecordPoll(status string) {
	if c == nil {
		return
	}
	c.pollsTotal.WithLabelValues(status).Inc()
}

// RecordGraphRequest records one Graph API call
func (c *Collector) RecordGraphRequest(operation, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.graphRequests.WithLabelValues(operation, outcome).Inc()
	c.graphDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordHTTPRequest records one served HTTP request
func (c *Collector) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
