package metrics

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics exports metrics through a dedicated Prometheus registry.
// Collectors are created on first use of a name.
type PrometheusMetrics struct {
	namespace  string
	registry   *prometheus.Registry
	mu         sync.Mutex
	gauges     map[string]prometheus.Gauge
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// NewPrometheusMetrics creates a backend whose metric names are prefixed
// with namespace.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	return &PrometheusMetrics{
		namespace:  namespace,
		registry:   prometheus.NewRegistry(),
		gauges:     make(map[string]prometheus.Gauge),
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// Registry returns the underlying registry.
func (p *PrometheusMetrics) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format.
func (p *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusMetrics) Initialize(ctx context.Context) error { return nil }
func (p *PrometheusMetrics) Flush(ctx context.Context) error      { return nil }
func (p *PrometheusMetrics) Shutdown(ctx context.Context) error   { return nil }

func (p *PrometheusMetrics) gauge(name string) (prometheus.Gauge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if g, ok := p.gauges[name]; ok {
		return g, nil
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: p.namespace,
		Name:      name,
		Help:      name,
	})
	if err := p.registry.Register(g); err != nil {
		return nil, err
	}
	p.gauges[name] = g
	return g, nil
}

func (p *PrometheusMetrics) counter(name string) (prometheus.Counter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.counters[name]; ok {
		return c, nil
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: p.namespace,
		Name:      name + "_total",
		Help:      name,
	})
	if err := p.registry.Register(c); err != nil {
		return nil, err
	}
	p.counters[name] = c
	return c, nil
}

func (p *PrometheusMetrics) histogram(name string) (prometheus.Histogram, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.histograms[name]; ok {
		return h, nil
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: p.namespace,
		Name:      name,
		Help:      name,
		Buckets:   prometheus.DefBuckets,
	})
	if err := p.registry.Register(h); err != nil {
		return nil, err
	}
	p.histograms[name] = h
	return h, nil
}

func (p *PrometheusMetrics) UpdateGauge(ctx context.Context, name string, value float64) error {
	g, err := p.gauge(name)
	if err != nil {
		return err
	}
	g.Set(value)
	return nil
}

func (p *PrometheusMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	c, err := p.counter(name)
	if err != nil {
		return err
	}
	c.Add(float64(value))
	return nil
}

func (p *PrometheusMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	h, err := p.histogram(name)
	if err != nil {
		return err
	}
	h.Observe(value)
	return nil
}
