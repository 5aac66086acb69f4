package promadapters

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AntonStoeckl/shop-load-generator/shop"
)

const metricsPath = "/metrics"

var durationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// MetricsCollector creates a vector per metric name on first use.
// The label names of that first call are fixed for the metric; records with other label names
// are dropped and counted in loadgen_metrics_dropped_total.
type MetricsCollector struct {
	registry *prometheus.Registry
	dropped  prometheus.Counter

	mu         sync.Mutex
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewMetricsCollector creates a collector on its own registry, which also carries the Go runtime
// and process collectors.
func NewMetricsCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loadgen_metrics_dropped_total",
		Help: "Measurements dropped because of inconsistent label names.",
	})
	registry.MustRegister(dropped)

	return &MetricsCollector{
		registry:   registry,
		dropped:    dropped,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

func (m *MetricsCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	vec := m.histogram(metric, labels)
	if vec == nil {
		return
	}

	observer, err := vec.GetMetricWith(labels)
	if err != nil {
		m.dropped.Inc()
		return
	}

	observer.Observe(duration.Seconds())
}

func (m *MetricsCollector) IncrementCounter(metric string, labels map[string]string) {
	vec := m.counter(metric, labels)
	if vec == nil {
		return
	}

	counter, err := vec.GetMetricWith(labels)
	if err != nil {
		m.dropped.Inc()
		return
	}

	counter.Inc()
}

func (m *MetricsCollector) RecordValue(metric string, value float64, labels map[string]string) {
	vec := m.gauge(metric, labels)
	if vec == nil {
		return
	}

	gauge, err := vec.GetMetricWith(labels)
	if err != nil {
		m.dropped.Inc()
		return
	}

	gauge.Set(value)
}

// Registry exposes the registry, mainly for tests and for registering additional collectors.
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// NewServer returns an http.Server exposing Handler on /metrics.
func (m *MetricsCollector) NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, m.Handler())

	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func (m *MetricsCollector) histogram(name string, labels map[string]string) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, ok := m.histograms[name]; ok {
		return vec
	}

	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: name, Help: "Duration in seconds.", Buckets: durationBuckets},
		labelNames(labels),
	)
	if !m.register(vec) {
		return nil
	}

	m.histograms[name] = vec

	return vec
}

func (m *MetricsCollector) counter(name string, labels map[string]string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, ok := m.counters[name]; ok {
		return vec
	}

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: "Event count."}, labelNames(labels))
	if !m.register(vec) {
		return nil
	}

	m.counters[name] = vec

	return vec
}

func (m *MetricsCollector) gauge(name string, labels map[string]string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, ok := m.gauges[name]; ok {
		return vec
	}

	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: "Last recorded value."}, labelNames(labels))
	if !m.register(vec) {
		return nil
	}

	m.gauges[name] = vec

	return vec
}

// register fails for invalid names and for a name already used by another metric type.
func (m *MetricsCollector) register(collector prometheus.Collector) bool {
	if err := m.registry.Register(collector); err != nil {
		m.dropped.Inc()
		return false
	}

	return true
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

var _ shop.MetricsCollector = (*MetricsCollector)(nil)
