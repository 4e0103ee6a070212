package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/snackbase/snackbase-go/errors"
)

// TypedResponse wraps a response with a decoded body of type T.
type TypedResponse[T any] struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// Data is the decoded response body.
	Data T
}

// RequestOption configures a single request.
type RequestOption func(*Request)

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[key] = value
	}
}

// WithQueryParam adds a query parameter to the request.
func WithQueryParam(key string, value any) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(map[string]any)
		}
		r.Query[key] = value
	}
}

// WithQuery merges query parameters into the request.
func WithQuery(query map[string]any) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(map[string]any, len(query))
		}
		for k, v := range query {
			r.Query[k] = v
		}
	}
}

// WithTimeout overrides the client timeout for the request.
func WithTimeout(d time.Duration) RequestOption {
	return func(r *Request) {
		r.Timeout = d
	}
}

// WithoutAuth sends the request without credentials.
func WithoutAuth() RequestOption {
	return func(r *Request) {
		r.SkipAuth = true
	}
}

// WithoutRetry sends the request exactly once: no retries and no refresh
// on a 401.
func WithoutRetry() RequestOption {
	return func(r *Request) {
		r.NoRetry = true
	}
}

// Get performs a GET request and decodes the JSON response into type T.
func Get[T any](c *Client, ctx context.Context, path string, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodGet, path, nil, opts...)
}

// Post performs a POST request and decodes the response into type T.
func Post[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodPost, path, body, opts...)
}

// Put performs a PUT request and decodes the response into type T.
func Put[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodPut, path, body, opts...)
}

// Patch performs a PATCH request and decodes the response into type T.
func Patch[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodPatch, path, body, opts...)
}

// Delete performs a DELETE request and decodes the JSON response into type T.
func Delete[T any](c *Client, ctx context.Context, path string, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodDelete, path, nil, opts...)
}

// doTyped executes a typed request and decodes the JSON response. A body
// that does not decode into T is reported as UnexpectedError.
func doTyped[T any](c *Client, ctx context.Context, method, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	resp, err := c.Do(ctx, newRequest(method, path, body, opts))
	if err != nil {
		return nil, err
	}

	var data T
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, &data); err != nil {
			return nil, errors.Unexpected(fmt.Errorf("httpclient: decode response: %w", err)).
				WithDetail("status", resp.StatusCode)
		}
	}

	return &TypedResponse[T]{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Data:       data,
	}, nil
}
