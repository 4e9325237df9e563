// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatproxy"

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	// Latency buckets in milliseconds
	latencyBuckets = []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

	tokenBuckets = []float64{16, 64, 256, 512, 1024, 2048, 3000, 4000, 8000}
)

// Metrics is one registry plus the collectors the proxy updates.
type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	PromptTokens    prometheus.Histogram
	UpstreamLatency prometheus.Histogram
	RelayedBytes    prometheus.Counter
	ActiveStreams   prometheus.Gauge
	RateLimited     prometheus.Counter
}

// New creates a registry with process and Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Chat requests by outcome and failure kind",
		}, []string{"outcome", "kind"}),
		PromptTokens: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prompt_tokens",
			Help:      "Estimated prompt tokens of admitted requests",
			Buckets:   tokenBuckets,
		}),
		UpstreamLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_setup_latency_ms",
			Help:      "Time from request start until the upstream stream is open, in milliseconds",
			Buckets:   latencyBuckets,
		}),
		RelayedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_bytes_total",
			Help:      "Bytes relayed from the upstream stream to clients",
		}),
		ActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Streams currently being relayed",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}
}

// ObserveSuccess records an admitted request.
func (m *Metrics) ObserveSuccess(promptTokens int, setup time.Duration) {
	m.Requests.WithLabelValues(OutcomeOK, "").Inc()
	m.PromptTokens.Observe(float64(promptTokens))
	m.UpstreamLatency.Observe(float64(setup.Milliseconds()))
}

// ObserveFailure records a rejected request under its error label.
func (m *Metrics) ObserveFailure(kind string) {
	m.Requests.WithLabelValues(OutcomeError, kind).Inc()
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
