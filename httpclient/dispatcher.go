package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snackbase/snackbase-go/errors"
	"github.com/snackbase/snackbase-go/logger"
)

// dispatcher performs exactly one HTTP exchange per send.
type dispatcher struct {
	httpClient *http.Client
	config     Config
	log        *logger.Logger
}

func newDispatcher(cfg Config, httpClient *http.Client, log *logger.Logger) *dispatcher {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	}
	return &dispatcher{httpClient: httpClient, config: cfg, log: log}
}

// encodedBody is a request body serialized once so every attempt sends the
// same bytes.
type encodedBody struct {
	data        []byte
	contentType string
	present     bool
}

func (b encodedBody) reader() io.Reader {
	if !b.present {
		return nil
	}
	return bytes.NewReader(b.data)
}

// encodeBody converts a body value into bytes and a content type.
func encodeBody(body any) (encodedBody, error) {
	if body == nil {
		return encodedBody{}, nil
	}
	switch v := body.(type) {
	case *MultipartBody:
		data, ct, err := v.encode()
		if err != nil {
			return encodedBody{}, err
		}
		return encodedBody{data: data, contentType: ct, present: true}, nil
	case []byte:
		return encodedBody{data: v, present: true}, nil
	case io.Reader:
		data, err := io.ReadAll(v)
		if err != nil {
			return encodedBody{}, err
		}
		return encodedBody{data: data, present: true}, nil
	case string:
		return encodedBody{data: []byte(v), contentType: "text/plain; charset=utf-8", present: true}, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return encodedBody{}, err
		}
		return encodedBody{data: data, contentType: "application/json", present: true}, nil
	}
}

// send executes a single attempt of req with the given bearer token.
// Non-2xx responses are returned together with their classified error.
func (d *dispatcher) send(ctx context.Context, req *Request, body encodedBody, token string) (*Response, error) {
	timeout := d.config.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := d.buildRequest(ctx, req, body, token)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, ClassifyTransport(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ClassifyTransport(ctx, fmt.Errorf("read response body: %w", err))
	}

	d.log.Debug("HTTP exchange", logger.Fields(
		logger.FieldMethod, req.Method,
		logger.FieldPath, httpReq.URL.Path,
		logger.FieldStatusCode, resp.StatusCode,
		logger.FieldRequestID, httpReq.Header.Get("X-Request-ID"),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))

	result := &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       data,
		Request:    req,
	}

	if classErr := ClassifyResponse(resp.StatusCode, resp.Header, data); classErr != nil {
		return result, classErr
	}
	return result, nil
}

// buildRequest constructs an *http.Request from the client config and request.
func (d *dispatcher) buildRequest(ctx context.Context, req *Request, body encodedBody, token string) (*http.Request, error) {
	target, err := resolveURL(d.config.BaseURL, req.Path, req.Query)
	if err != nil {
		return nil, errors.Validation(0, fmt.Sprintf("invalid request path %q", req.Path), nil).WithCause(err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body.reader())
	if err != nil {
		return nil, errors.Unexpected(fmt.Errorf("create request: %w", err))
	}

	httpReq.Header.Set("Accept", "application/json")

	// Apply default headers
	for k, v := range d.config.Headers {
		httpReq.Header.Set(k, v)
	}

	// Apply request-specific headers (override defaults)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	if body.present && body.contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", body.contentType)
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", d.config.UserAgent)
	}
	if httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", uuid.NewString())
	}
	if token != "" && !req.SkipAuth && !d.foreign(req.Path) {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	return httpReq, nil
}

// foreign reports whether path is an absolute URL pointing at another
// origin than the base URL. Credentials are never sent to such a URL.
func (d *dispatcher) foreign(path string) bool {
	if !isAbsoluteURL(path) {
		return false
	}
	target, err := url.Parse(path)
	if err != nil {
		return true
	}
	base, err := url.Parse(d.config.BaseURL)
	if err != nil {
		return true
	}
	return !strings.EqualFold(target.Scheme, base.Scheme) || !strings.EqualFold(target.Host, base.Host)
}

func isAbsoluteURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// resolveURL joins base and path and appends the encoded query.
func resolveURL(base, path string, query map[string]any) (string, error) {
	target := path
	if !isAbsoluteURL(path) {
		target = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	}
	if len(query) == 0 {
		return target, nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vals := range encodeQuery(query) {
		for _, v := range vals {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// encodeQuery flattens query values. Nil values are skipped and slices
// repeat the key once per element.
func encodeQuery(query map[string]any) url.Values {
	values := make(url.Values, len(query))
	for k, v := range query {
		if v == nil {
			continue
		}
		rv := reflect.ValueOf(v)
		for rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				break
			}
			rv = rv.Elem()
		}
		if rv.Kind() == reflect.Pointer {
			continue
		}
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			for i := 0; i < rv.Len(); i++ {
				if s, ok := formatQueryValue(rv.Index(i).Interface()); ok {
					values.Add(k, s)
				}
			}
			continue
		}
		if s, ok := formatQueryValue(rv.Interface()); ok {
			values.Add(k, s)
		}
	}
	return values
}

func formatQueryValue(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case time.Time:
		return x.Format(time.RFC3339), true
	case *time.Time:
		if x == nil {
			return "", false
		}
		return x.Format(time.RFC3339), true
	case []byte:
		return string(x), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
