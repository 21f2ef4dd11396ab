package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/pipewright/pkg/observability"
)

// Metrics holds the service's Prometheus collectors on a private registry.
// It implements observability.ValidationHooks and observability.CacheHooks.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	parsed      *prometheus.CounterVec
	parseErrors *prometheus.CounterVec
	graphNodes  prometheus.Histogram
	cacheEvents *prometheus.CounterVec
}

// NewMetrics creates collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		parsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipelines_parsed_total",
			Help:      "Pipelines analysed, by DAG verdict",
		}, []string{"is_dag"}),
		parseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_parse_errors_total",
			Help:      "Submissions that could not be analysed",
		}, []string{"reason"}),
		graphNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_nodes",
			Help:      "Node count of analysed pipelines",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Result cache hits, misses and writes",
		}, []string{"key_type", "event"}),
	}
	m.registry.MustRegister(m.requests, m.duration, m.parsed, m.parseErrors, m.graphNodes, m.cacheEvents)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) OnParse(_ context.Context, nodes, _ int, isDAG bool, _ time.Duration) {
	m.parsed.WithLabelValues(strconv.FormatBool(isDAG)).Inc()
	m.graphNodes.Observe(float64(nodes))
}

func (m *Metrics) OnParseError(_ context.Context, reason string) {
	m.parseErrors.WithLabelValues(reason).Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, _ int) {
	m.cacheEvents.WithLabelValues(keyType, "set").Inc()
}

var (
	_ observability.ValidationHooks = (*Metrics)(nil)
	_ observability.CacheHooks      = (*Metrics)(nil)
)
