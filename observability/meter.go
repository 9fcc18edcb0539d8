package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/restkit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// Enabled turns on OTLP export. When false the global provider is left alone.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// ServiceName is the name of the service.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	// ServiceVersion is the version of the service.
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	// Environment is the deployment environment (dev, staging, prod).
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// Insecure allows insecure connections (for development).
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		Enabled:        true,
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The provider should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Call outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// ClientMetrics holds the instruments recorded by the invocation engine.
// A nil *ClientMetrics records nothing.
type ClientMetrics struct {
	calls         metric.Int64Counter
	attempts      metric.Int64Counter
	retries       metric.Int64Counter
	cancellations metric.Int64Counter
	inFlight      metric.Int64UpDownCounter
	duration      metric.Float64Histogram
}

// NewClientMetrics creates the client instruments on meter.
func NewClientMetrics(meter metric.Meter) (*ClientMetrics, error) {
	calls, err := meter.Int64Counter("restkit.client.calls",
		metric.WithDescription("Completed client method calls by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating restkit.client.calls counter: %w", err)
	}

	attempts, err := meter.Int64Counter("restkit.client.attempts",
		metric.WithDescription("Requests handed to the transport"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating restkit.client.attempts counter: %w", err)
	}

	retries, err := meter.Int64Counter("restkit.client.retries",
		metric.WithDescription("Attempts repeated after a retry decision"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating restkit.client.retries counter: %w", err)
	}

	cancellations, err := meter.Int64Counter("restkit.client.cancellations",
		metric.WithDescription("Calls cancelled by an interceptor or injector"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating restkit.client.cancellations counter: %w", err)
	}

	inFlight, err := meter.Int64UpDownCounter("restkit.client.in_flight",
		metric.WithDescription("Calls currently executing"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating restkit.client.in_flight gauge: %w", err)
	}

	duration, err := meter.Float64Histogram("restkit.client.duration",
		metric.WithDescription("Duration of client method calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating restkit.client.duration histogram: %w", err)
	}

	return &ClientMetrics{
		calls:         calls,
		attempts:      attempts,
		retries:       retries,
		cancellations: cancellations,
		inFlight:      inFlight,
		duration:      duration,
	}, nil
}

func methodAttrs(iface, method string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("interface", iface),
		attribute.String("method", method),
	)
}

// CallStarted increments the in-flight count.
func (m *ClientMetrics) CallStarted(ctx context.Context, iface, method string) {
	if m == nil {
		return
	}
	m.inFlight.Add(ctx, 1, methodAttrs(iface, method))
}

// CallFinished decrements the in-flight count and records the outcome.
func (m *ClientMetrics) CallFinished(ctx context.Context, iface, method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Add(ctx, -1, methodAttrs(iface, method))
	m.calls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("interface", iface),
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
	m.duration.Record(ctx, d.Seconds(), methodAttrs(iface, method))
	if outcome == OutcomeCancelled {
		m.cancellations.Add(ctx, 1, methodAttrs(iface, method))
	}
}

// Attempt records one transport send.
func (m *ClientMetrics) Attempt(ctx context.Context, iface, method string) {
	if m == nil {
		return
	}
	m.attempts.Add(ctx, 1, methodAttrs(iface, method))
}

// Retry records one retry decision.
func (m *ClientMetrics) Retry(ctx context.Context, iface, method string) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1, methodAttrs(iface, method))
}
