package errors

// ErrorCode represents a machine-readable error kind.
type ErrorCode string

// HTTP-level failures
const (
	// ErrCodeAuthentication indicates the backend rejected the credentials (401/403).
	ErrCodeAuthentication ErrorCode = "AUTHENTICATION_ERROR"
	// ErrCodeValidation indicates the request was rejected as invalid (422 and other 4xx).
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrCodeNotFound indicates the requested resource was not found (404).
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeRateLimited indicates the client is rate limited (429).
	ErrCodeRateLimited ErrorCode = "RATE_LIMIT_ERROR"
	// ErrCodeServer indicates a server-side failure (5xx).
	ErrCodeServer ErrorCode = "SERVER_ERROR"
)

// Failures without an HTTP response
const (
	// ErrCodeNetwork indicates no response was received (refused, reset, timeout).
	ErrCodeNetwork ErrorCode = "NETWORK_ERROR"
	// ErrCodeConfiguration indicates the client was constructed with invalid settings.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeUnexpected wraps anything that is not a recognised HTTP or network failure.
	ErrCodeUnexpected ErrorCode = "UNEXPECTED_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeNetwork:     true,
	ErrCodeServer:      true,
	ErrCodeRateLimited: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
