package httpclient

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/snackbase/snackbase-go/errors"
)

// ClassifyResponse converts a non-2xx response into a classified error.
// Returns nil for 2xx status codes. The status decides the kind; the body
// supplies the message, per-field validation messages, and a retry-after
// hint when the header carries none.
func ClassifyResponse(statusCode int, header http.Header, body []byte) *errors.AppError {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	p := parseErrorBody(body)
	msg := p.message
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return errors.Authentication(statusCode, msg)
	case statusCode == http.StatusNotFound:
		return errors.NotFound(msg)
	case statusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(header.Get("Retry-After"), time.Now())
		if retryAfter == 0 {
			retryAfter = p.retryAfter
		}
		return errors.RateLimited(msg, retryAfter)
	case statusCode >= 500:
		return errors.Server(statusCode, msg)
	case statusCode >= 400:
		if p.message == "" && len(p.fields) > 0 {
			msg = "Validation failed."
		}
		return errors.Validation(statusCode, msg, p.fields)
	default:
		e := errors.New(errors.ErrCodeUnexpected, fmt.Sprintf("unexpected status %d", statusCode), statusCode)
		return e
	}
}

// ClassifyTransport converts a failure that produced no response into a
// NetworkError. Deadline expiry is marked with the timeout detail.
func ClassifyTransport(ctx context.Context, err error) *errors.AppError {
	if isTimeout(ctx, err) {
		e := errors.Network(err)
		e.Message = "request timed out"
		return e.WithDetail("timeout", true)
	}
	return errors.Network(err)
}

func isTimeout(ctx context.Context, err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// errorBody is the information extracted from an error response body.
type errorBody struct {
	message    string
	fields     map[string][]string
	retryAfter time.Duration
}

// parseErrorBody reads the shapes SnackBase and FastAPI-style backends use:
//
//	{"detail": "msg"}
//	{"detail": [{"loc": ["body", "email"], "msg": "..."}]}
//	{"message": "msg", "errors": {"email": ["..."]}}
//	{"error": "msg", "retry_after": 30}
func parseErrorBody(body []byte) errorBody {
	var out errorBody
	if len(body) == 0 {
		return out
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return out
	}

	if d, ok := raw["detail"]; ok {
		var s string
		if json.Unmarshal(d, &s) == nil {
			out.message = s
		} else {
			out.fields = merge(out.fields, detailFields(d))
		}
	}
	if out.message == "" {
		out.message = stringField(raw["message"])
	}
	if out.message == "" {
		out.message = stringField(raw["error"])
	}
	if e, ok := raw["errors"]; ok {
		out.fields = merge(out.fields, errorsFields(e))
	}
	if ra, ok := raw["retry_after"]; ok {
		var secs float64
		if json.Unmarshal(ra, &secs) == nil && secs > 0 {
			out.retryAfter = time.Duration(secs * float64(time.Second))
		}
	}
	return out
}

// stringField returns a JSON string, or the "message" member of a JSON object.
func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Message
	}
	return ""
}

// errorsFields accepts {"field": ["m1", "m2"]}, {"field": "m"}, and
// [{"field": "f", "message": "m"}].
func errorsFields(raw json.RawMessage) map[string][]string {
	var byField map[string]json.RawMessage
	if json.Unmarshal(raw, &byField) == nil {
		out := make(map[string][]string, len(byField))
		for field, v := range byField {
			var list []string
			if json.Unmarshal(v, &list) == nil {
				out[field] = append(out[field], list...)
				continue
			}
			var s string
			if json.Unmarshal(v, &s) == nil {
				out[field] = append(out[field], s)
			}
		}
		return out
	}

	var items []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &items) == nil {
		out := make(map[string][]string, len(items))
		for _, it := range items {
			if it.Field == "" {
				continue
			}
			out[it.Field] = append(out[it.Field], it.Message)
		}
		return out
	}
	return nil
}

// detailFields maps a FastAPI validation list to field messages. The
// location prefix (body, query, path) is dropped.
func detailFields(raw json.RawMessage) map[string][]string {
	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &items) != nil {
		return nil
	}
	out := make(map[string][]string, len(items))
	for _, it := range items {
		parts := make([]string, 0, len(it.Loc))
		for i, l := range it.Loc {
			s := fmt.Sprint(l)
			if i == 0 && (s == "body" || s == "query" || s == "path" || s == "header") {
				continue
			}
			parts = append(parts, s)
		}
		field := strings.Join(parts, ".")
		if field == "" {
			field = "_"
		}
		out[field] = append(out[field], it.Msg)
	}
	return out
}

func merge(dst, src map[string][]string) map[string][]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string][]string, len(src))
	}
	for k, v := range src {
		dst[k] = append(dst[k], v...)
	}
	return dst
}

// parseRetryAfter reads a Retry-After header in delay-seconds or HTTP-date form.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
