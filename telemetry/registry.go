package telemetry

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/itsneelabh/mindhive/core"
)

// ModuleConfig represents metric configuration for a module, declared up
// front (typically from an init()) so every metric a package can emit is
// discoverable before the registry is ever initialized.
type ModuleConfig struct {
	Metrics []MetricDefinition
}

// MetricDefinition describes a single metric's shape and intent.
type MetricDefinition struct {
	Name    string
	Type    string // counter, histogram, gauge, updowncounter
	Help    string
	Labels  []string
	Unit    string
	Buckets []float64
}

var declaredMetrics sync.Map // map[string]ModuleConfig

// DeclareMetrics registers a module's metric definitions for discovery.
// It never requires the registry to be initialized, solving the init()
// ordering problem: a package can declare its metrics from its own init()
// regardless of whether Init has run yet.
func DeclareMetrics(module string, cfg ModuleConfig) {
	declaredMetrics.Store(module, cfg)
}

// DeclaredMetrics returns every metric definition registered so far, keyed
// by declaring module.
func DeclaredMetrics() map[string]ModuleConfig {
	out := make(map[string]ModuleConfig)
	declaredMetrics.Range(func(k, v interface{}) bool {
		out[k.(string)] = v.(ModuleConfig)
		return true
	})
	return out
}

// metricStore is an in-process aggregate of emitted values, keyed by
// metric name. It backs Registry when no external exporter is wired; a
// production deployment would swap this for an OTLP-backed instrument
// cache without touching the Level 1/2 API in api.go.
type metricStore struct {
	mu         sync.Mutex
	counters   map[string]float64
	histograms map[string][]float64
	gauges     map[string]float64
}

func newMetricStore() *metricStore {
	return &metricStore{
		counters:   make(map[string]float64),
		histograms: make(map[string][]float64),
		gauges:     make(map[string]float64),
	}
}

func (m *metricStore) RecordCounter(_ context.Context, name string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += float64(delta)
	return nil
}

func (m *metricStore) RecordHistogram(_ context.Context, name string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[name] = append(m.histograms[name], value)
	return nil
}

func (m *metricStore) RecordUpDownCounter(_ context.Context, name string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] += float64(delta)
	return nil
}

// Snapshot returns the current value of every counter and gauge.
func (m *metricStore) Snapshot() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.counters)+len(m.gauges))
	for k, v := range m.counters {
		out[k] = v
	}
	for k, v := range m.gauges {
		out[k] = v
	}
	return out
}

// Registry is the process-wide metrics sink that Emit and the Level 1/2
// helpers in api.go route through. Telemetry is opt-in: absent a call to
// Init, every Emit is a safe no-op.
type Registry struct {
	metrics *metricStore
}

var (
	globalRegistry atomic.Value // holds *Registry
	initOnce       sync.Once
)

// Init installs the process-wide Registry. Safe to call more than once;
// only the first call takes effect, matching the framework's "initialize
// once in main" convention. It also registers the Registry with core via
// core.SetMetricsRegistry, so ProductionLogger (and anything else holding a
// core.Logger) starts emitting framework metrics alongside its log lines.
func Init() *Registry {
	var r *Registry
	initOnce.Do(func() {
		r = &Registry{metrics: newMetricStore()}
		globalRegistry.Store(r)
		core.SetMetricsRegistry(&frameworkMetricsRegistry{metrics: r.metrics})
	})
	if r == nil {
		return GetRegistry()
	}
	return r
}

// frameworkMetricsRegistry adapts Registry's metricStore to core.MetricsRegistry,
// the narrow surface core/logger.go and core/memory_store.go emit framework
// metrics through without importing this package directly.
type frameworkMetricsRegistry struct {
	metrics *metricStore
}

func (f *frameworkMetricsRegistry) Counter(name string, labels ...string) {
	_ = f.metrics.RecordCounter(context.Background(), name, 1)
}

func (f *frameworkMetricsRegistry) EmitWithContext(ctx context.Context, name string, value float64, labels ...string) {
	_ = f.metrics.RecordHistogram(ctx, name, value)
}

func (f *frameworkMetricsRegistry) Gauge(name string, value float64, labels ...string) {
	f.metrics.mu.Lock()
	f.metrics.gauges[name] = value
	f.metrics.mu.Unlock()
}

func (f *frameworkMetricsRegistry) Histogram(name string, value float64, labels ...string) {
	_ = f.metrics.RecordHistogram(context.Background(), name, value)
}

// GetBaggage surfaces the active span's trace/span IDs for log correlation,
// the one piece of cross-cutting context a metrics registry can pull from
// ctx without depending on the core.Telemetry provider directly.
func (f *frameworkMetricsRegistry) GetBaggage(ctx context.Context) map[string]string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return map[string]string{}
	}
	return map[string]string{
		"trace_id": sc.TraceID().String(),
		"span_id":  sc.SpanID().String(),
	}
}

// GetRegistry returns the installed Registry, or nil if Init was never
// called. resilience.globalTelemetryAvailable uses this to auto-detect
// whether to attach telemetry to a circuit breaker.
func GetRegistry() *Registry {
	v := globalRegistry.Load()
	if v == nil {
		return nil
	}
	return v.(*Registry)
}

// Snapshot exposes the current metric values, or nil if telemetry was
// never initialized.
func (r *Registry) Snapshot() map[string]float64 {
	if r == nil {
		return nil
	}
	return r.metrics.Snapshot()
}
