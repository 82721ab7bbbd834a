package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/custdesk/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Enrichment kinds used as metric labels
const (
	EnrichmentPAN      = "pan"
	EnrichmentPostcode = "postcode"
)

// Enrichment outcomes used as metric labels
const (
	OutcomeApplied   = "applied"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeDiscarded = "discarded"
)

// Metrics holds the Prometheus collectors of the service.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	enrichmentCalls   *prometheus.CounterVec
	enrichmentLatency *prometheus.HistogramVec
	storeRecords      prometheus.Gauge
	storeMutations    *prometheus.CounterVec
	formSessions      prometheus.Gauge
}

// NewMetrics creates collectors on a private registry
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "custdesk"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "path"},
		),
		enrichmentCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "enrichment_calls_total",
				Help:      "Remote enrichment calls by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		enrichmentLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "enrichment_duration_seconds",
				Help:      "Remote enrichment call latency in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"kind"},
		),
		storeRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_records",
				Help:      "Number of customer records held in memory",
			},
		),
		storeMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_mutations_total",
				Help:      "Customer store mutations by event type",
			},
			[]string{"event_type"},
		),
		formSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "form_sessions",
				Help:      "Number of open form sessions",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal,
		m.requestDuration,
		m.enrichmentCalls,
		m.enrichmentLatency,
		m.storeRecords,
		m.storeMutations,
		m.formSessions,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request count and latency by route template
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.requestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// ObserveEnrichment records one remote enrichment call
func (m *Metrics) ObserveEnrichment(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.enrichmentCalls.WithLabelValues(kind, outcome).Inc()
	m.enrichmentLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// SetFormSessions sets the open form session gauge
func (m *Metrics) SetFormSessions(n int) {
	if m == nil {
		return
	}
	m.formSessions.Set(float64(n))
}

// RecordCounter reports how many records the store holds
type RecordCounter interface {
	Count() int
}

// StoreMetricsHandler keeps store gauges current from store events
type StoreMetricsHandler struct {
	metrics *Metrics
	store   RecordCounter
}

// NewStoreMetricsHandler creates a handler reading sizes from store
func NewStoreMetricsHandler(metrics *Metrics, store RecordCounter) *StoreMetricsHandler {
	return &StoreMetricsHandler{metrics: metrics, store: store}
}

// Handle counts the mutation and refreshes the record gauge
func (h *StoreMetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.metrics == nil {
		return nil
	}
	h.metrics.storeMutations.WithLabelValues(event.EventType()).Inc()
	h.metrics.storeRecords.Set(float64(h.store.Count()))
	return nil
}

// EventTypes subscribes to every event
func (h *StoreMetricsHandler) EventTypes() []string {
	return nil
}
