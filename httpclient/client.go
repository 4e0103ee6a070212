package httpclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/snackbase/snackbase-go/errors"
	"github.com/snackbase/snackbase-go/logger"
	"github.com/snackbase/snackbase-go/observability"
	"github.com/snackbase/snackbase-go/redis"
	"github.com/snackbase/snackbase-go/resilience"
	"github.com/snackbase/snackbase-go/tokenstore"
)

const (
	instrumentationName = "github.com/snackbase/snackbase-go/httpclient"
	healthPath          = "/health"
)

// Client is the SnackBase HTTP client. Each request runs through the retry
// policy, which wraps the refresh handling, which wraps a single HTTP
// exchange. Every error a Client returns is an *errors.AppError.
//
// A Client is safe for concurrent use. Its configuration and token store
// belong to it alone.
type Client struct {
	config    Config
	dispatch  *dispatcher
	tokens    *tokenstore.Store
	refresher *refresher
	retry     resilience.RetryConfig
	redis     *redis.Client
	log       *logger.Logger
	tracer    trace.Tracer
	metrics   *observability.ClientMetrics
}

// New validates cfg and creates a client. Configuration problems are
// reported as ConfigurationError before any request is made. A session
// persisted by a previous process is restored from the token backend.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.clone()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("httpclient")

	tp := o.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := o.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	metrics, err := observability.NewClientMetrics(mp.Meter(instrumentationName))
	if err != nil {
		return nil, errors.Configuration("failed to create client metrics").WithCause(err)
	}

	backend, rc, err := newTokenBackend(cfg.Storage, o.backend, log)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:  cfg,
		tokens:  tokenstore.New(backend, cfg.Storage.Key, log),
		redis:   rc,
		log:     log,
		tracer:  tp.Tracer(instrumentationName),
		metrics: metrics,
	}
	c.dispatch = newDispatcher(cfg, o.httpClient, log)
	c.refresher = &refresher{
		store:    c.tokens,
		dispatch: c.dispatch,
		path:     cfg.RefreshPath,
		timeout:  cfg.Timeout,
		log:      log,
		metrics:  metrics,
	}
	c.retry = resilience.RetryConfig{
		MaxAttempts:    cfg.MaxRetries + 1,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		BackoffFactor:  2.0,
		RetryIf:        errors.IsRetryable,
		DelayFloor:     retryAfterFloor,
		Sleep:          o.sleep,
	}

	loadCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := c.tokens.Load(loadCtx); err != nil {
		log.Warn("Could not restore persisted session", logger.ErrorFields("load", err))
	}

	log.Debug("Client created", logger.Fields(
		"base_url", cfg.BaseURL,
		logger.FieldBackend, string(cfg.Storage.resolve()),
		"max_retries", cfg.MaxRetries,
	))
	return c, nil
}

// newTokenBackend selects the token backend. An explicit override wins;
// otherwise Storage decides, auto-detecting redis, then file, then memory.
func newTokenBackend(storage StorageConfig, override tokenstore.Backend, log *logger.Logger) (tokenstore.Backend, *redis.Client, error) {
	if override != nil {
		return override, nil, nil
	}
	switch storage.resolve() {
	case StorageRedis:
		rc, err := redis.New(storage.Redis, log)
		if err != nil {
			return nil, nil, errors.Configuration("invalid redis storage configuration").WithCause(err)
		}
		return redis.NewTokenBackend(rc, ""), rc, nil
	case StorageFile:
		return tokenstore.NewFileBackend(storage.FilePath), nil, nil
	default:
		return tokenstore.NewMemoryBackend(), nil, nil
	}
}

// retryAfterFloor makes a rate limit's retry-after hint the minimum wait.
func retryAfterFloor(err error) time.Duration {
	if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrCodeRateLimited {
		return appErr.RetryAfter
	}
	return 0
}

// Do executes req. On failure the last response received, if any, is
// returned alongside the error for diagnostics.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if c.dispatch.foreign(req.Path) {
		req.SkipAuth = true
	}
	ctx, span := c.tracer.Start(ctx, observability.SpanClientRequest,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.path", req.Path),
		),
	)
	defer span.End()
	start := time.Now()

	resp, err := c.do(ctx, &req)

	outcome := "success"
	if err != nil {
		appErr := errors.FromError(err)
		outcome = string(appErr.Code)
		span.RecordError(appErr)
		span.SetStatus(codes.Error, appErr.Message)
		span.SetAttributes(attribute.String(observability.AttrErrorCode, outcome))
		err = appErr
	}
	if resp != nil {
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	}
	c.metrics.RecordRequest(ctx, req.Method, outcome, time.Since(start))
	return resp, err
}

func (c *Client) do(ctx context.Context, req *Request) (*Response, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, errors.Unexpected(fmt.Errorf("encode request body: %w", err))
	}

	var last *Response
	authRetried := false

	cfg := c.retry
	if req.NoRetry {
		cfg.MaxAttempts = 1
	}
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		code := string(errors.FromError(err).Code)
		c.log.Warn("Retrying request", logger.Fields(
			logger.FieldMethod, req.Method,
			logger.FieldPath, req.Path,
			logger.FieldAttempt, attempt,
			logger.FieldErrorCode, code,
			logger.FieldBackoff, backoff.Milliseconds(),
		))
		c.metrics.RecordRetry(ctx, code)
	}

	resp, err := resilience.Retry(ctx, cfg, func() (*Response, error) {
		r, err := c.attempt(ctx, req, body, &authRetried)
		if r != nil {
			last = r
		}
		return r, err
	})
	if err != nil {
		return last, err
	}
	return resp, nil
}

// attempt sends req once. A 401 on an authenticated request triggers at
// most one refresh per request, followed by one resend with the new token.
func (c *Client) attempt(ctx context.Context, req *Request, body encodedBody, authRetried *bool) (*Response, error) {
	token := ""
	if !req.SkipAuth {
		token = c.tokens.AccessToken()
	}

	resp, err := c.dispatch.send(ctx, req, body, token)
	if err == nil || req.SkipAuth || req.NoRetry || *authRetried || !needsRefresh(err) {
		return resp, err
	}
	*authRetried = true

	state, refreshErr := c.refresher.refresh(ctx, token)
	if refreshErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return resp, ClassifyTransport(ctx, ctxErr)
		}
		c.log.Debug("Refresh unavailable", logger.ErrorFields("refresh", refreshErr))
		return resp, err
	}
	return c.dispatch.send(ctx, req, body, state.AccessToken)
}

func needsRefresh(err error) bool {
	appErr, ok := errors.AsAppError(err)
	return ok && appErr.Code == errors.ErrCodeAuthentication && appErr.HTTPStatus == http.StatusUnauthorized
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, newRequest(http.MethodGet, path, nil, opts))
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, newRequest(http.MethodPost, path, body, opts))
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, newRequest(http.MethodPut, path, body, opts))
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, newRequest(http.MethodPatch, path, body, opts))
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, newRequest(http.MethodDelete, path, nil, opts))
}

func newRequest(method, path string, body any, opts []RequestOption) Request {
	req := Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// Tokens returns the client's token store.
func (c *Client) Tokens() *tokenstore.Store {
	return c.tokens
}

// RefreshTokens forces a refresh through the same coordination requests
// use, so it joins a refresh already in flight.
func (c *Client) RefreshTokens(ctx context.Context) (tokenstore.State, error) {
	state, err := c.refresher.refresh(ctx, c.tokens.AccessToken())
	if err != nil {
		if stderrors.Is(err, ErrNoRefreshToken) {
			return state, errors.Authentication(http.StatusUnauthorized, "No refresh token available. Please log in.").WithCause(err)
		}
		return state, errors.FromError(err)
	}
	return state, nil
}

// HealthCheckers returns probes for the backend and, when the session is
// kept in Redis, for the Redis server. A Redis outage degrades the client
// rather than taking it down, since the in-memory session still works.
func (c *Client) HealthCheckers() []observability.HealthChecker {
	checks := []observability.HealthChecker{
		observability.CheckFunc{Name: "snackbase", Probe: func(ctx context.Context) error {
			req := &Request{Method: http.MethodGet, Path: healthPath, SkipAuth: true}
			_, err := c.dispatch.send(ctx, req, encodedBody{}, "")
			return err
		}},
	}
	if c.redis != nil {
		checks = append(checks, observability.CheckFunc{
			Name:   "redis",
			Status: observability.HealthStatusDegraded,
			Probe:  c.redis.Ping,
		})
	}
	return checks
}

// Config returns a copy of the effective configuration.
func (c *Client) Config() Config {
	return c.config.clone()
}

// StorageBackend reports which session backend the configuration selected.
func (c *Client) StorageBackend() StorageType {
	return c.config.Storage.resolve()
}

// Close releases idle connections and any Redis connection the client opened.
func (c *Client) Close(_ context.Context) error {
	c.dispatch.httpClient.CloseIdleConnections()
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}
