/*
Package telemetry provides observability for the mindhive agent hierarchy.

Architecture Overview:

The package has a three-layer architecture:

 1. Simple API Layer - developer-facing functions (Emit, Counter, Histogram, Gauge)
 2. Registry Layer - thread-safe global registry with once-only initialization
 3. Provider Layer - an OpenTelemetry-backed core.Telemetry implementation for
    span export, opted into via Config.Telemetry; its metric instruments use
    the global OpenTelemetry MeterProvider, which this package does not install

Thread Safety:

All public functions in this package are safe for concurrent use. The
global registry is installed once via atomic.Value, and metric state is
guarded by a mutex in metricStore.

Usage:

Initialize once in main:

	telemetry.Init()

Then emit metrics from anywhere:

	telemetry.Counter("coordination.interactions", "type", "USER_QUERY")
	telemetry.Histogram("coordination.interaction.duration_ms", 42.0, "type", "USER_QUERY")

Declare a module's metrics up front, regardless of init() order:

	func init() {
		telemetry.DeclareMetrics("mymodule", telemetry.ModuleConfig{
			Metrics: []telemetry.MetricDefinition{
				{Name: "mymodule.calls", Type: "counter", Help: "calls made"},
			},
		})
	}

For distributed tracing, construct an OTelProvider
(see otel.go) and pass it anywhere a core.Telemetry is accepted:

	tel, err := telemetry.NewTelemetryFromConfig(cfg.Name, cfg.Telemetry)
	ctx, span := tel.StartSpan(ctx, "coordination.dispatch")
	defer span.End()
*/
package telemetry
