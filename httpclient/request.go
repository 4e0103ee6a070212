package httpclient

import (
	"encoding/json"
	"fmt"
	"time"
)

// Request describes an outbound HTTP request.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, PATCH, DELETE, etc).
	Method string
	// Path is appended to the client's BaseURL. Absolute URLs pass through;
	// when they name another origin the request is sent as SkipAuth.
	Path string
	// Headers are request-specific headers (merged with client defaults).
	Headers map[string]string
	// Query are URL query parameters. Scalars are formatted, slices repeat
	// the key, nil values are skipped, and time.Time is sent as RFC 3339.
	Query map[string]any
	// Body is the request body. Accepts *MultipartBody, io.Reader, []byte,
	// string, or any value that will be JSON-encoded.
	Body any
	// Timeout overrides the client timeout for this request.
	Timeout time.Duration
	// SkipAuth sends the request without an Authorization header and
	// disables refresh handling.
	SkipAuth bool
	// NoRetry sends the request once, with neither retries nor a
	// refresh-driven resend.
	NoRetry bool
}

// Response is the result of an HTTP request.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// Body is the raw response body.
	Body []byte
	// Request is the request that produced this response.
	Request *Request
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError returns true if the status code is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// JSON decodes the body into v. An empty body leaves v untouched.
func (r *Response) JSON(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("httpclient: decode response: %w", err)
	}
	return nil
}
