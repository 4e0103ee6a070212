package mcp

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/snackbase/snackbase-go/errors"
)

// TextResult renders v as a successful tool result. Strings are returned
// as is; anything else is rendered as indented JSON.
func TextResult(v any) CallToolResult {
	var text string
	switch x := v.(type) {
	case string:
		text = x
	case []byte:
		text = string(x)
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return ErrorResult(errors.Unexpected(fmt.Errorf("encode tool result: %w", err)))
		}
		text = string(data)
	}
	return CallToolResult{Content: []Content{{Type: "text", Text: text}}}
}

// ErrorResult renders err as a tool result with IsError set. The text
// starts with a prefix naming the error kind.
func ErrorResult(err error) CallToolResult {
	return CallToolResult{
		Content: []Content{{Type: "text", Text: errorText(errors.FromError(err))}},
		IsError: true,
	}
}

func errorText(e *errors.AppError) string {
	switch e.Code {
	case errors.ErrCodeAuthentication:
		return "Authentication failed: " + e.Message
	case errors.ErrCodeValidation:
		return "Validation failed: " + e.Message + fieldLines(e.Fields)
	case errors.ErrCodeNotFound:
		return "Not found: " + e.Message
	case errors.ErrCodeRateLimited:
		if e.RetryAfter > 0 {
			return fmt.Sprintf("Rate limit exceeded (retry after %ds): %s", int(e.RetryAfter/time.Second), e.Message)
		}
		return "Rate limit exceeded: " + e.Message
	case errors.ErrCodeServer:
		return fmt.Sprintf("Server error (%d): %s", e.HTTPStatus, e.Message)
	case errors.ErrCodeNetwork:
		return "Network error — is the backend running?: " + e.Message
	case errors.ErrCodeConfiguration:
		return "Configuration error: " + e.Message
	default:
		return "Unexpected error: " + e.Message
	}
}

// fieldLines lists field messages one per line in field order.
func fieldLines(fields map[string][]string) string {
	if len(fields) == 0 {
		return ""
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	for _, name := range names {
		for _, msg := range fields[name] {
			fmt.Fprintf(&b, "\n  - %s: %s", name, msg)
		}
	}
	return b.String()
}
