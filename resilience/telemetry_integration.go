package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/itsneelabh/mindhive/telemetry"
)

// TelemetryMetrics implements MetricsCollector by routing through the
// telemetry package's Level 1 API, so circuit breaker activity shows up
// under the "circuit_breaker" metrics declared in instrumentation.go.
type TelemetryMetrics struct{}

// NewTelemetryMetrics creates a metrics collector backed by telemetry.
func NewTelemetryMetrics() *TelemetryMetrics {
	return &TelemetryMetrics{}
}

func (t *TelemetryMetrics) RecordSuccess(name string) {
	telemetry.Counter("circuit_breaker.calls", "name", name, "state", "success")
}

func (t *TelemetryMetrics) RecordFailure(name string, errorType string) {
	telemetry.Counter("circuit_breaker.calls", "name", name, "state", "failure")
	telemetry.Counter("circuit_breaker.failures", "name", name, "error_type", errorType)
}

func (t *TelemetryMetrics) RecordStateChange(name string, from, to string) {
	telemetry.Counter("circuit_breaker.state_changes", "name", name, "from_state", from, "to_state", to)

	stateValue := 0.0
	switch to {
	case "half-open":
		stateValue = 0.5
	case "open":
		stateValue = 1.0
	}
	telemetry.Gauge("circuit_breaker.current_state", stateValue, "name", name)
}

func (t *TelemetryMetrics) RecordRejection(name string) {
	telemetry.Counter("circuit_breaker.rejected", "name", name)
}

// RetryWithTelemetry is a retry loop of its own that emits per-attempt
// telemetry, for call sites that want per-attempt metrics without
// threading a MetricsCollector through a circuit breaker. Its backoff
// follows Retry's exponential schedule, without jitter.
func RetryWithTelemetry(ctx context.Context, operation string, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	start := time.Now()

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		telemetry.Counter("retry.attempts", "operation", operation, "attempt_number", fmt.Sprintf("%d", attempt))

		err := fn()
		if err == nil {
			telemetry.Counter("retry.success", "operation", operation, "final_attempt", fmt.Sprintf("%d", attempt))
			telemetry.Histogram("retry.duration_ms", float64(time.Since(start).Milliseconds()), "operation", operation, "status", "success")
			return nil
		}

		if attempt == config.MaxAttempts {
			telemetry.Counter("retry.failures", "operation", operation, "error_type", fmt.Sprintf("%T", err))
			telemetry.Histogram("retry.duration_ms", float64(time.Since(start).Milliseconds()), "operation", operation, "status", "failure")
			return err
		}

		delay := config.InitialDelay
		for i := 1; i < attempt; i++ {
			delay = time.Duration(float64(delay) * config.BackoffFactor)
		}
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
		telemetry.Histogram("retry.backoff_ms", float64(delay.Milliseconds()), "operation", operation, "strategy", "exponential")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("retry exhausted after %d attempts", config.MaxAttempts)
}
