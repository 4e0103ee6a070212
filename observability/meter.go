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

	"github.com/snackbase/snackbase-go/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "0.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider and registers it
// globally. The returned provider should be shut down on exit.
func InitMeter(ctx context.Context, config MeterConfig, log *logger.Logger) (*sdkmetric.MeterProvider, error) {
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

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	if log != nil {
		log.Info("Meter initialized", logger.Fields(
			"service", config.ServiceName,
			"endpoint", config.Endpoint,
			"interval", config.Interval.String(),
		))
	}

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// ClientMetrics holds the instruments recorded by the SnackBase client.
// A nil *ClientMetrics records nothing.
type ClientMetrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	retryTotal      metric.Int64Counter
	refreshTotal    metric.Int64Counter
}

// NewClientMetrics creates client instruments on the given meter.
func NewClientMetrics(meter metric.Meter) (*ClientMetrics, error) {
	requestTotal, err := meter.Int64Counter("snackbase.client.requests",
		metric.WithDescription("Requests completed by the client, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating snackbase.client.requests counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram("snackbase.client.duration",
		metric.WithDescription("Duration of client requests including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating snackbase.client.duration histogram: %w", err)
	}

	retryTotal, err := meter.Int64Counter("snackbase.client.retries",
		metric.WithDescription("Retry attempts, by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating snackbase.client.retries counter: %w", err)
	}

	refreshTotal, err := meter.Int64Counter("snackbase.client.refreshes",
		metric.WithDescription("Token refresh exchanges, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating snackbase.client.refreshes counter: %w", err)
	}

	return &ClientMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		retryTotal:      retryTotal,
		refreshTotal:    refreshTotal,
	}, nil
}

// RecordRequest records a completed request. outcome is "success" or an error code.
func (m *ClientMetrics) RecordRequest(ctx context.Context, method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
	))
}

// RecordRetry records one retry caused by an error with the given code.
func (m *ClientMetrics) RecordRetry(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.retryTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

// RecordRefresh records one refresh exchange. outcome is "success" or "failure".
func (m *ClientMetrics) RecordRefresh(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.refreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
