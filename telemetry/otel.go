package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/itsneelabh/mindhive/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// OTelProvider implements core.Telemetry with OpenTelemetry. Traces export
// via OTLP/gRPC when an endpoint is configured, and via a pretty-printed
// stdout exporter otherwise, so a developer running without a collector
// still sees spans instead of silently losing them. Metric instruments are
// created lazily and cached by name the first time RecordMetric sees them,
// the same way the in-process metricStore in registry.go avoids a
// declare-before-use requirement.
type OTelProvider struct {
	tracer        trace.Tracer
	meter         metric.Meter
	traceProvider *sdktrace.TracerProvider

	mu         sync.Mutex
	counters   map[string]metric.Float64Counter
	histograms map[string]metric.Float64Histogram

	shutdownOnce sync.Once
}

// NewOTelProvider creates an OTelProvider for serviceName. endpoint is an
// OTLP/gRPC collector address (typically port 4317); an empty endpoint
// falls back to stdout export, which is useful for local development.
func NewOTelProvider(serviceName string, endpoint string) (*OTelProvider, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("service name cannot be empty")
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String("1.0.0"),
	)

	ctx := context.Background()

	var exporter sdktrace.SpanExporter
	var err error
	if endpoint != "" {
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP trace exporter for %s: %w", endpoint, err)
		}
	} else {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating stdout trace exporter: %w", err)
		}
	}

	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &OTelProvider{
		tracer:        traceProvider.Tracer(serviceName),
		meter:         otel.Meter(serviceName),
		traceProvider: traceProvider,
		counters:      make(map[string]metric.Float64Counter),
		histograms:    make(map[string]metric.Float64Histogram),
	}, nil
}

// NewTelemetryFromConfig builds an OTelProvider when cfg enables telemetry,
// or returns a nil core.Telemetry (telemetry disabled) otherwise. Callers
// should treat a nil return as "don't wire telemetry into this component",
// not as an error.
func NewTelemetryFromConfig(serviceName string, cfg core.TelemetryConfig) (core.Telemetry, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return NewOTelProvider(serviceName, cfg.OTLPEndpoint)
}

// StartSpan satisfies core.Telemetry.
func (p *OTelProvider) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	ctx, span := p.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// RecordMetric satisfies core.Telemetry. Metric names that contain one of
// the counter words in isCounterMetric (count, total, errors, success,
// calls, ...) anywhere in the name are recorded as counters; everything
// else (durations, sizes, queue depths) is recorded as a histogram.
func (p *OTelProvider) RecordMetric(name string, value float64, labels map[string]string) {
	ctx := context.Background()
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}

	if isCounterMetric(name) {
		counter, err := p.counterFor(name)
		if err != nil {
			return
		}
		counter.Add(ctx, value, metric.WithAttributes(attrs...))
		return
	}

	histogram, err := p.histogramFor(name)
	if err != nil {
		return
	}
	histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

func (p *OTelProvider) counterFor(name string) (metric.Float64Counter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if counter, ok := p.counters[name]; ok {
		return counter, nil
	}
	counter, err := p.meter.Float64Counter(name)
	if err != nil {
		return nil, fmt.Errorf("creating counter %s: %w", name, err)
	}
	p.counters[name] = counter
	return counter, nil
}

func (p *OTelProvider) histogramFor(name string) (metric.Float64Histogram, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if histogram, ok := p.histograms[name]; ok {
		return histogram, nil
	}
	histogram, err := p.meter.Float64Histogram(name)
	if err != nil {
		return nil, fmt.Errorf("creating histogram %s: %w", name, err)
	}
	p.histograms[name] = histogram
	return histogram, nil
}

func isCounterMetric(name string) bool {
	lower := strings.ToLower(name)
	for _, sub := range []string{"count", "total", "errors", "success", "calls", "rejected", "updates", "queries", "runs", "findings", "campaigns", "cycles", "actions", "interactions"} {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// Shutdown flushes and stops the underlying trace provider. Safe to call
// more than once.
func (p *OTelProvider) Shutdown(ctx context.Context) error {
	var err error
	p.shutdownOnce.Do(func() {
		if p.traceProvider != nil {
			err = p.traceProvider.Shutdown(ctx)
		}
	})
	return err
}

// otelSpan adapts an OpenTelemetry trace.Span to core.Span.
type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *otelSpan) RecordError(err error) {
	s.span.RecordError(err)
}
