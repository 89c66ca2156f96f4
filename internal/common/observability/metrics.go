// internal/common/observability/metrics.go
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics wraps the OpenTelemetry instruments for the command surface.
// The prometheus exporter feeds the same registry the /metrics endpoint
// serves, so these land next to the promauto counters.
type Metrics struct {
	provider *sdkmetric.MeterProvider

	commandsTotal   metric.Int64Counter
	commandDuration metric.Float64Histogram
}

// NewMetrics builds a meter provider backed by the default prometheus
// registry and registers the command instruments.
func NewMetrics(serviceName string) (*Metrics, error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(serviceName)

	commandsTotal, err := meter.Int64Counter(
		"menubot_commands_total",
		metric.WithDescription("Total number of chat commands dispatched"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create commands counter: %w", err)
	}

	commandDuration, err := meter.Float64Histogram(
		"menubot_command_duration_seconds",
		metric.WithDescription("Duration of chat command handling in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create command duration histogram: %w", err)
	}

	return &Metrics{
		provider:        provider,
		commandsTotal:   commandsTotal,
		commandDuration: commandDuration,
	}, nil
}

// RecordCommand records a dispatched command with its outcome and duration.
func (m *Metrics) RecordCommand(ctx context.Context, command, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("status", status),
	)
	m.commandsTotal.Add(ctx, 1, attrs)
	m.commandDuration.Record(ctx, seconds, attrs)
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
