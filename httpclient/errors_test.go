package httpclient

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"
	"time"

	"github.com/snackbase/snackbase-go/errors"
)

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    errors.ErrorCode
		message string
	}{
		{"ok", 200, ``, "", ""},
		{"no content", 204, ``, "", ""},
		{"unauthorized", 401, `{"detail":"Token expired"}`, errors.ErrCodeAuthentication, "Token expired"},
		{"forbidden", 403, `{"message":"Insufficient permissions"}`, errors.ErrCodeAuthentication, "Insufficient permissions"},
		{"not found", 404, `{"error":"Collection not found"}`, errors.ErrCodeNotFound, "Collection not found"},
		{"rate limited", 429, ``, errors.ErrCodeRateLimited, "Too Many Requests"},
		{"server", 500, `not json`, errors.ErrCodeServer, "Internal Server Error"},
		{"bad gateway", 502, `{"detail":"upstream down"}`, errors.ErrCodeServer, "upstream down"},
		{"bad request", 400, `{"detail":"Bad slug"}`, errors.ErrCodeValidation, "Bad slug"},
		{"conflict", 409, ``, errors.ErrCodeValidation, "Conflict"},
		{"nested error object", 400, `{"error":{"message":"nested"}}`, errors.ErrCodeValidation, "nested"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyResponse(tt.status, http.Header{}, []byte(tt.body))
			if tt.code == "" {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected error")
			}
			if got.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, got.Code)
			}
			if got.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, got.Message)
			}
		})
	}
}

func TestClassifyResponse_ValidationFields(t *testing.T) {
	body := `{"errors":{"email":["Invalid email format"]}}`
	got := ClassifyResponse(422, http.Header{}, []byte(body))
	if !errors.IsValidation(got) {
		t.Fatalf("expected validation error, got %v", got)
	}
	if f := got.Fields["email"]; len(f) != 1 || f[0] != "Invalid email format" {
		t.Errorf("expected email field message, got %v", got.Fields)
	}
	if got.Retryable {
		t.Error("validation errors must not be retryable")
	}
	if got.Message != "Validation failed." {
		t.Errorf("expected generic message, got %q", got.Message)
	}
}

func TestClassifyResponse_FieldShapes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		want  string
	}{
		{"single message", `{"errors":{"name":"required"}}`, "name", "required"},
		{"list of objects", `{"errors":[{"field":"slug","message":"taken"}]}`, "slug", "taken"},
		{"fastapi detail", `{"detail":[{"loc":["body","password"],"msg":"too short","type":"value_error"}]}`, "password", "too short"},
		{"fastapi nested loc", `{"detail":[{"loc":["body","fields",0,"name"],"msg":"missing"}]}`, "fields.0.name", "missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyResponse(422, http.Header{}, []byte(tt.body))
			msgs := got.Fields[tt.field]
			if len(msgs) != 1 || msgs[0] != tt.want {
				t.Errorf("expected %s=[%s], got %v", tt.field, tt.want, got.Fields)
			}
		})
	}
}

func TestClassifyResponse_RetryAfter(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "60")
	got := ClassifyResponse(429, h, nil)
	if got.RetryAfter != 60*time.Second {
		t.Errorf("expected 60s from header, got %v", got.RetryAfter)
	}

	got = ClassifyResponse(429, http.Header{}, []byte(`{"detail":"slow down","retry_after":12}`))
	if got.RetryAfter != 12*time.Second {
		t.Errorf("expected 12s from body, got %v", got.RetryAfter)
	}
	if got.Message != "slow down" {
		t.Errorf("expected body message, got %q", got.Message)
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"-3", 0},
		{"soon", 0},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in, now); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClassifyTransport(t *testing.T) {
	refused := stderrors.New("dial tcp 127.0.0.1:1: connect: connection refused")
	got := ClassifyTransport(context.Background(), refused)
	if !errors.IsNetwork(got) || !got.Retryable {
		t.Fatalf("expected retryable network error, got %v", got)
	}
	if _, ok := got.Details["timeout"]; ok {
		t.Error("connection refused should not be marked as timeout")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	got = ClassifyTransport(ctx, ctx.Err())
	if got.Details["timeout"] != true {
		t.Errorf("expected timeout detail, got %v", got.Details)
	}
	if !stderrors.Is(got, context.DeadlineExceeded) {
		t.Error("expected cause to be preserved")
	}
}
