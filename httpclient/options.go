package httpclient

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/snackbase/snackbase-go/logger"
	"github.com/snackbase/snackbase-go/tokenstore"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient     *http.Client
	log            *logger.Logger
	backend        tokenstore.Backend
	sleep          func(ctx context.Context, d time.Duration) error
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithHTTPClient sets the underlying *http.Client. Its Timeout should be
// zero; the client bounds each attempt with a context deadline.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithTokenBackend persists tokens to backend instead of the one selected
// by Config.Storage.
func WithTokenBackend(backend tokenstore.Backend) Option {
	return func(o *options) { o.backend = backend }
}

// WithSleep replaces the wait between retry attempts. Tests use it to run
// backoff in simulated time.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = sleep }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}
