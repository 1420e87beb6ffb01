package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coursebridge"

// Metrics groups the advising collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	resolveLatency    *prometheus.HistogramVec
	retrievalOutcomes *prometheus.CounterVec
	retrievalLatency  prometheus.Histogram
	bundleEntries     *prometheus.HistogramVec
	ambiguousRefs     prometheus.Counter
	breakerState      *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	httpInflight prometheus.Gauge

	vectorOps       *prometheus.HistogramVec
	vectorBootstrap *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		// outcome: ok, partial, store_unavailable, invalid
		resolveLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "advising",
			Name:      "resolve_seconds",
			Help:      "Latency of context resolution per question",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"outcome"}),
		// status: ok, empty, unavailable
		retrievalOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "semantic",
			Name:      "retrievals_total",
			Help:      "Semantic retrieval calls by outcome",
		}, []string{"status"}),
		retrievalLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "semantic",
			Name:      "retrieval_seconds",
			Help:      "Latency of one semantic retrieval including embedding",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}),
		bundleEntries: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "advising",
			Name:      "bundle_entries",
			Help:      "Entries per context bundle by provenance",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 12, 20},
		}, []string{"provenance"}),
		ambiguousRefs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "advising",
			Name:      "ambiguous_references_total",
			Help:      "Fuzzy course references resolved with a tie",
		}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "semantic",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"name"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "HTTP requests currently being served",
		}),
		vectorOps: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "vector_store",
			Name:      "operation_seconds",
			Help:      "Vector store operation latency by provider, operation and status",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"provider", "operation", "status"}),
		vectorBootstrap: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vector_store",
			Name:      "bootstrap_total",
			Help:      "Vector provider bootstrap attempts by outcome",
		}, []string{"provider", "outcome", "code"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveResolve(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.resolveLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveRetrieval(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.retrievalOutcomes.WithLabelValues(status).Inc()
	m.retrievalLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveBundle(deterministic, semantic int) {
	if m == nil {
		return
	}
	m.bundleEntries.WithLabelValues("deterministic").Observe(float64(deterministic))
	m.bundleEntries.WithLabelValues("semantic").Observe(float64(semantic))
}

func (m *Metrics) IncAmbiguous(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ambiguousRefs.Add(float64(n))
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) HTTPInflightInc() {
	if m == nil {
		return
	}
	m.httpInflight.Inc()
}

func (m *Metrics) HTTPInflightDec() {
	if m == nil {
		return
	}
	m.httpInflight.Dec()
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveVectorStoreOperation(provider, operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.vectorOps.WithLabelValues(provider, operation, status).Observe(d.Seconds())
}

func (m *Metrics) ObserveVectorProviderBootstrap(provider, outcome, code string) {
	if m == nil {
		return
	}
	m.vectorBootstrap.WithLabelValues(provider, outcome, code).Inc()
}
