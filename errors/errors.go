package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// AppError is the classified error type returned by the client.
type AppError struct {
	// Code is the machine-readable error kind.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the response status code, 0 when no response was received.
	HTTPStatus int `json:"status,omitempty"`
	// Fields holds per-field validation messages (ValidationError only).
	Fields map[string][]string `json:"fields,omitempty"`
	// RetryAfter is the server-provided wait hint (RateLimitError only).
	RetryAfter time.Duration `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Code, e.HTTPStatus, e.Message)
	}
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Kind constructors ---

// Authentication creates an AuthenticationError.
func Authentication(status int, message string) *AppError {
	if status == 0 {
		status = http.StatusUnauthorized
	}
	if message == "" {
		message = "Authentication required."
	}
	return &AppError{
		Code: ErrCodeAuthentication, Message: message,
		HTTPStatus: status, Retryable: false,
	}
}

// Validation creates a ValidationError carrying per-field messages.
func Validation(status int, message string, fields map[string][]string) *AppError {
	if message == "" {
		message = "Validation failed."
	}
	return &AppError{
		Code: ErrCodeValidation, Message: message,
		HTTPStatus: status, Retryable: false, Fields: fields,
	}
}

// NotFound creates a NotFoundError.
func NotFound(message string) *AppError {
	if message == "" {
		message = "The requested resource was not found."
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: message,
		HTTPStatus: http.StatusNotFound, Retryable: false,
	}
}

// RateLimited creates a RateLimitError. retryAfter is the server's wait hint
// (zero when the server gave none).
func RateLimited(message string, retryAfter time.Duration) *AppError {
	if message == "" {
		message = "Too many requests. Please wait a moment and try again."
	}
	e := &AppError{
		Code: ErrCodeRateLimited, Message: message,
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
		RetryAfter: retryAfter,
	}
	if retryAfter > 0 {
		e.WithDetail("retry_after_seconds", int(retryAfter/time.Second))
	}
	return e
}

// Server creates a ServerError for a 5xx response.
func Server(status int, message string) *AppError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &AppError{
		Code: ErrCodeServer, Message: message,
		HTTPStatus: status, Retryable: true,
	}
}

// Network creates a NetworkError for a request that produced no response.
func Network(cause error) *AppError {
	msg := "no response from server"
	if cause != nil {
		msg = cause.Error()
	}
	return &AppError{
		Code: ErrCodeNetwork, Message: msg,
		Retryable: true, Cause: cause,
	}
}

// Configuration creates a ConfigurationError.
func Configuration(message string) *AppError {
	return &AppError{
		Code: ErrCodeConfiguration, Message: message, Retryable: false,
	}
}

// Unexpected wraps a value that is not a recognised HTTP or network failure.
func Unexpected(cause error) *AppError {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return &AppError{
		Code: ErrCodeUnexpected, Message: msg, Retryable: false, Cause: cause,
	}
}

// FromError converts any error into an *AppError. AppErrors are returned
// unchanged, context cancellation and deadlines become NetworkErrors, and
// everything else becomes an UnexpectedError. Returns nil for nil.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return Network(err)
	}
	return Unexpected(err)
}
