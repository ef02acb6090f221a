// Package metrics exposes Prometheus metrics for market data acquisition.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stocky_backend/internal/feature/candles/usecase"
)

// Metrics holds every collector on a private registry, so tests and
// multiple instances never collide on the global default registry.
type Metrics struct {
	registry *prometheus.Registry

	ProviderRequests    *prometheus.CounterVec   // labels: provider, outcome
	ProviderDuration    *prometheus.HistogramVec // labels: provider
	CacheRequests       *prometheus.CounterVec   // labels: result
	SyntheticFallbacks  prometheus.Counter
	IndicatorComputeDur prometheus.Histogram

	CacheBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	CacheBreakerTrips prometheus.Counter
}

var _ usecase.MetricsRecorder = (*Metrics)(nil)

// New registers and returns all metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocky_provider_requests_total",
			Help: "Upstream provider calls by outcome (success, empty, no_data, timeout, error, skipped)",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stocky_provider_request_duration_seconds",
			Help:    "Latency of upstream provider calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"provider"}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocky_cache_requests_total",
			Help: "Candle cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		SyntheticFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stocky_synthetic_fallbacks_total",
			Help: "Requests answered with synthetic candles after every provider failed",
		}),
		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stocky_indicator_compute_duration_seconds",
			Help:    "Time to compute the indicator set for one series",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		CacheBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stocky_cache_circuit_breaker_state",
			Help: "Cache circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		CacheBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stocky_cache_circuit_breaker_trips_total",
			Help: "Number of times the cache circuit breaker opened",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ProviderRequests,
		m.ProviderDuration,
		m.CacheRequests,
		m.SyntheticFallbacks,
		m.IndicatorComputeDur,
		m.CacheBreakerState,
		m.CacheBreakerTrips,
	)
	return m
}

// ObserveProviderRequest counts a provider call. Skipped calls have no latency.
func (m *Metrics) ObserveProviderRequest(provider, outcome string, elapsed time.Duration) {
	m.ProviderRequests.WithLabelValues(provider, outcome).Inc()
	if outcome != usecase.OutcomeSkipped {
		m.ProviderDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

// ObserveCacheRequest counts a cache lookup.
func (m *Metrics) ObserveCacheRequest(result string) {
	m.CacheRequests.WithLabelValues(result).Inc()
}

// IncSyntheticFallback counts a synthetic answer.
func (m *Metrics) IncSyntheticFallback() {
	m.SyntheticFallbacks.Inc()
}

// ObserveIndicatorCompute records indicator computation latency.
func (m *Metrics) ObserveIndicatorCompute(elapsed time.Duration) {
	m.IndicatorComputeDur.Observe(elapsed.Seconds())
}

// SetCacheBreakerState records a breaker transition. state follows the
// gauge encoding; opened reports a transition into the open state.
func (m *Metrics) SetCacheBreakerState(state int, opened bool) {
	m.CacheBreakerState.Set(float64(state))
	if opened {
		m.CacheBreakerTrips.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
