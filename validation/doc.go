// Package validation checks caller input before it is sent to SnackBase.
//
// Failures are reported as a ValidationError (*errors.AppError with code
// VALIDATION_ERROR) whose Fields map is keyed by the json name of each
// offending field, the same shape the backend uses for 422 responses.
//
// # Struct Tag Validation
//
//	type Credentials struct {
//	    Email    string `json:"email" validate:"required,email"`
//	    Password string `json:"password" validate:"required"`
//	}
//	err := validation.Validate(creds)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("path", path).OneOf("method", method, methods)
//	err := v.Validate()
package validation
