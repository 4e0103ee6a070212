package mcp

import (
	stderrors "errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/snackbase/snackbase-go/errors"
)

func TestErrorResult_Prefixes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"authentication", errors.Authentication(401, "Token expired"), "Authentication failed: Token expired"},
		{"not found", errors.NotFound("Record not found"), "Not found: Record not found"},
		{"rate limit with hint", errors.RateLimited("slow down", 60*time.Second), "Rate limit exceeded (retry after 60s): slow down"},
		{"rate limit without hint", errors.RateLimited("slow down", 0), "Rate limit exceeded: slow down"},
		{"server", errors.Server(http.StatusInternalServerError, "boom"), "Server error (500): boom"},
		{"network", errors.Network(stderrors.New("connection refused")), "Network error — is the backend running?: connection refused"},
		{"configuration", errors.Configuration("base URL is required"), "Configuration error: base URL is required"},
		{"plain error", stderrors.New("weird"), "Unexpected error: weird"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ErrorResult(tt.err)
			if !r.IsError {
				t.Error("expected IsError")
			}
			if got := r.Text(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestErrorResult_ValidationFields(t *testing.T) {
	err := errors.Validation(422, "Validation failed.", map[string][]string{
		"password": {"is required"},
		"email":    {"Invalid email format", "already taken"},
	})
	got := ErrorResult(err).Text()
	want := "Validation failed: Validation failed.\n  - email: Invalid email format\n  - email: already taken\n  - password: is required"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTextResult(t *testing.T) {
	if got := TextResult("Logged out.").Text(); got != "Logged out." {
		t.Errorf("expected plain string, got %q", got)
	}
	r := TextResult(map[string]int{"status": 200})
	if r.IsError {
		t.Error("text results are not errors")
	}
	if !strings.Contains(r.Text(), "\n  \"status\": 200") {
		t.Errorf("expected indented JSON, got %q", r.Text())
	}
}
