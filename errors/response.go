package errors

import (
	stderrors "errors"
)

// ErrorResponse is the JSON structure used when an error is rendered for a
// tool host or logged as structured content.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the rendered error details.
type ErrorBody struct {
	Code      ErrorCode           `json:"code"`
	Message   string              `json:"message"`
	Status    int                 `json:"status,omitempty"`
	Retryable bool                `json:"retryable"`
	Fields    map[string][]string `json:"fields,omitempty"`
	Details   map[string]any      `json:"details,omitempty"`
}

// ToResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:      e.Code,
			Message:   e.Message,
			Status:    e.HTTPStatus,
			Retryable: e.Retryable,
			Fields:    e.Fields,
			Details:   e.Details,
		},
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func hasCode(err error, code ErrorCode) bool {
	e, ok := AsAppError(err)
	return ok && e.Code == code
}

// IsAuthentication checks if an error is an AuthenticationError.
func IsAuthentication(err error) bool { return hasCode(err, ErrCodeAuthentication) }

// IsValidation checks if an error is a ValidationError.
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsNotFound checks if an error is a NotFoundError.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsRateLimited checks if an error is a RateLimitError.
func IsRateLimited(err error) bool { return hasCode(err, ErrCodeRateLimited) }

// IsServer checks if an error is a ServerError.
func IsServer(err error) bool { return hasCode(err, ErrCodeServer) }

// IsNetwork checks if an error is a NetworkError.
func IsNetwork(err error) bool { return hasCode(err, ErrCodeNetwork) }

// IsConfiguration checks if an error is a ConfigurationError.
func IsConfiguration(err error) bool { return hasCode(err, ErrCodeConfiguration) }

// IsUnexpected checks if an error is an UnexpectedError.
func IsUnexpected(err error) bool { return hasCode(err, ErrCodeUnexpected) }

// IsRetryable checks if an error is an AppError flagged as retryable.
func IsRetryable(err error) bool {
	e, ok := AsAppError(err)
	return ok && e.Retryable
}
