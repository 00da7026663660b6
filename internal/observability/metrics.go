package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathan/wiki-generator/internal/llm"
)

const namespace = "wikigen"

// Metrics holds the prometheus collectors for batches, pages and model calls.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	pages       *prometheus.CounterVec
	uploads     *prometheus.CounterVec
	inFlight    *prometheus.GaugeVec
	llmDuration *prometheus.HistogramVec
	llmErrors   *prometheus.CounterVec
	httpTotal   *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_generated_total",
			Help:      "Pages processed by generation batches.",
		}, []string{"mode", "status"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_uploaded_total",
			Help:      "Pages processed by upload batches.",
		}, []string{"platform", "status"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batches_in_flight",
			Help:      "Batches currently running.",
		}, []string{"kind"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Latency of model calls.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"model"}),
		llmErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_request_errors_total",
			Help:      "Failed model calls.",
		}, []string{"model"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by method and status code.",
		}, []string{"method", "code"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.pages, m.uploads, m.inFlight, m.llmDuration, m.llmErrors, m.httpTotal,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PageProcessed counts one page of a generation batch.
func (m *Metrics) PageProcessed(mode, status string) {
	if m == nil {
		return
	}
	m.pages.WithLabelValues(mode, status).Inc()
}

// PageUploaded counts one page of an upload batch.
func (m *Metrics) PageUploaded(platformName, status string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(platformName, status).Inc()
}

// BatchStarted marks a batch of kind as running and returns the func that ends it.
func (m *Metrics) BatchStarted(kind string) func() {
	if m == nil {
		return func() {}
	}
	g := m.inFlight.WithLabelValues(kind)
	g.Inc()
	return g.Dec
}

// HTTPRequest counts one API request.
func (m *Metrics) HTTPRequest(method string, code int) {
	if m == nil {
		return
	}
	m.httpTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// InstrumentClient wraps a model client so every Generate call is timed.
func (m *Metrics) InstrumentClient(c llm.Client) llm.Client {
	if m == nil {
		return c
	}
	return &instrumentedClient{Client: c, metrics: m}
}

type instrumentedClient struct {
	llm.Client
	metrics *Metrics
}

func (c *instrumentedClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	model := c.GetModel(req.Tier)
	start := time.Now()
	out, err := c.Client.Generate(ctx, req)
	c.metrics.llmDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.llmErrors.WithLabelValues(model).Inc()
	}
	return out, err
}
