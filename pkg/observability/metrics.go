package observability

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetricsClient implements MetricsClient on the default
// Prometheus registry. Collectors are created on first use and reused
// per metric name.
type PrometheusMetricsClient struct {
	namespace string

	mu         sync.RWMutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusMetricsClient creates a metrics client registering under
// the given namespace.
func NewPrometheusMetricsClient(namespace string) *PrometheusMetricsClient {
	c := &PrometheusMetricsClient{
		namespace:  namespace,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
	c.registerDefaults()
	return c
}

// registerDefaults pre-creates the collectors every request path touches
// so label sets are fixed from process start.
func (c *PrometheusMetricsClient) registerDefaults() {
	c.getOrCreateCounter("cache_operations_total", "Cache operations by layer and result", []string{"layer", "operation", "result"})
	c.getOrCreateHistogram("search_stage_duration_seconds", "Search pipeline stage duration", []string{"stage"})
	c.getOrCreateCounter("client_calls_total", "Outbound client calls", []string{"client", "operation", "status"})
	c.getOrCreateHistogram("client_call_duration_seconds", "Outbound client call duration", []string{"client", "operation"})
	c.getOrCreateGauge("health_check_status", "Component health (1 healthy, 0 unhealthy)", []string{"component"})
}

func (c *PrometheusMetricsClient) getOrCreateCounter(name, help string, labelNames []string) *prometheus.CounterVec {
	c.mu.RLock()
	cv, ok := c.counters[name]
	c.mu.RUnlock()
	if ok {
		return cv
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cv, ok = c.counters[name]; ok {
		return cv
	}
	cv = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      help,
	}, labelNames)
	c.counters[name] = cv
	return cv
}

func (c *PrometheusMetricsClient) getOrCreateGauge(name, help string, labelNames []string) *prometheus.GaugeVec {
	c.mu.RLock()
	gv, ok := c.gauges[name]
	c.mu.RUnlock()
	if ok {
		return gv
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gv, ok = c.gauges[name]; ok {
		return gv
	}
	gv = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      help,
	}, labelNames)
	c.gauges[name] = gv
	return gv
}

func (c *PrometheusMetricsClient) getOrCreateHistogram(name, help string, labelNames []string) *prometheus.HistogramVec {
	c.mu.RLock()
	hv, ok := c.histograms[name]
	c.mu.RUnlock()
	if ok {
		return hv
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if hv, ok = c.histograms[name]; ok {
		return hv
	}
	hv = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      help,
		Buckets:   prometheus.DefBuckets,
	}, labelNames)
	c.histograms[name] = hv
	return hv
}

// labelNames returns the sorted key set so a metric name always binds the
// same label schema.
func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// RecordCounter adds value to a counter.
func (c *PrometheusMetricsClient) RecordCounter(name string, value float64, labels map[string]string) {
	cv := c.getOrCreateCounter(name, fmt.Sprintf("Counter %s", name), labelNames(labels))
	cv.With(prometheus.Labels(labels)).Add(value)
}

// RecordGauge sets a gauge.
func (c *PrometheusMetricsClient) RecordGauge(name string, value float64, labels map[string]string) {
	gv := c.getOrCreateGauge(name, fmt.Sprintf("Gauge %s", name), labelNames(labels))
	gv.With(prometheus.Labels(labels)).Set(value)
}

// RecordHistogram observes a value.
func (c *PrometheusMetricsClient) RecordHistogram(name string, value float64, labels map[string]string) {
	hv := c.getOrCreateHistogram(name, fmt.Sprintf("Histogram %s", name), labelNames(labels))
	hv.With(prometheus.Labels(labels)).Observe(value)
}

// RecordDuration observes a duration in seconds.
func (c *PrometheusMetricsClient) RecordDuration(name string, duration time.Duration, labels map[string]string) {
	c.RecordHistogram(name, duration.Seconds(), labels)
}

// StartTimer returns a func recording elapsed time when called.
func (c *PrometheusMetricsClient) StartTimer(name string, labels map[string]string) func() {
	start := time.Now()
	return func() {
		c.RecordDuration(name, time.Since(start), labels)
	}
}

// RecordCacheOperation records one cache access for a layer.
func (c *PrometheusMetricsClient) RecordCacheOperation(layer, operation, result string) {
	c.RecordCounter("cache_operations_total", 1, map[string]string{
		"layer":     layer,
		"operation": operation,
		"result":    result,
	})
}

// RecordStageLatency records one pipeline stage duration.
func (c *PrometheusMetricsClient) RecordStageLatency(stage string, duration time.Duration) {
	c.RecordDuration("search_stage_duration_seconds", duration, map[string]string{"stage": stage})
}

// RecordClientCall records one outbound client call.
func (c *PrometheusMetricsClient) RecordClientCall(client, operation string, success bool, duration time.Duration) {
	status := "ok"
	if !success {
		status = "error"
	}
	c.RecordCounter("client_calls_total", 1, map[string]string{
		"client":    client,
		"operation": operation,
		"status":    status,
	})
	c.RecordDuration("client_call_duration_seconds", duration, map[string]string{
		"client":    client,
		"operation": operation,
	})
}

// Close implements MetricsClient. The default registry needs no teardown.
func (c *PrometheusMetricsClient) Close() error { return nil }

// NoOpMetricsClient discards all metrics.
type NoOpMetricsClient struct{}

// NewNoOpMetricsClient creates a metrics client that records nothing.
func NewNoOpMetricsClient() *NoOpMetricsClient {
	return &NoOpMetricsClient{}
}

// RecordCounter is a no-op implementation.
func (n *NoOpMetricsClient) RecordCounter(name string, value float64, labels map[string]string) {}

// RecordGauge is a no-op implementation.
func (n *NoOpMetricsClient) RecordGauge(name string, value float64, labels map[string]string) {}

// RecordHistogram is a no-op implementation.
func (n *NoOpMetricsClient) RecordHistogram(name string, value float64, labels map[string]string) {}

// RecordDuration is a no-op implementation.
func (n *NoOpMetricsClient) RecordDuration(name string, duration time.Duration, labels map[string]string) {
}

// StartTimer is a no-op implementation.
func (n *NoOpMetricsClient) StartTimer(name string, labels map[string]string) func() {
	return func() {}
}

// RecordCacheOperation is a no-op implementation.
func (n *NoOpMetricsClient) RecordCacheOperation(layer, operation, result string) {}

// RecordStageLatency is a no-op implementation.
func (n *NoOpMetricsClient) RecordStageLatency(stage string, duration time.Duration) {}

// RecordClientCall is a no-op implementation.
func (n *NoOpMetricsClient) RecordClientCall(client, operation string, success bool, duration time.Duration) {
}

// Close is a no-op implementation.
func (n *NoOpMetricsClient) Close() error {
	return nil
}

var _ MetricsClient = (*PrometheusMetricsClient)(nil)
var _ MetricsClient = (*NoOpMetricsClient)(nil)
