package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/snackbase/snackbase-go/errors"
)

// Validator accumulates field problems for ad-hoc input such as tool
// arguments. Checks chain; Validate reports everything found at once.
//
//	err := validation.New().
//	    Required("path", args.Path).
//	    MaxLength("path", args.Path, 2048).
//	    Validate()
type Validator struct {
	problems []FieldError
}

// FieldError is one problem with one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a problem for field.
func (v *Validator) AddError(field, message string) {
	v.problems = append(v.problems, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool {
	return len(v.problems) > 0
}

// Validate returns nil when every check passed, otherwise a
// ValidationError whose Fields map each field to its messages in the
// order they were found.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	parts := make([]string, 0, len(v.problems))
	fields := make(map[string][]string)
	for _, p := range v.problems {
		parts = append(parts, p.Field+" "+p.Message)
		fields[p.Field] = append(fields[p.Field], p.Message)
	}
	return errors.Validation(0, strings.Join(parts, "; "), fields)
}

// Required fails for empty or whitespace-only values.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// MaxLength fails when value is longer than limit bytes.
func (v *Validator) MaxLength(field, value string, limit int) *Validator {
	if len(value) > limit {
		v.AddError(field, fmt.Sprintf("must be %d characters or less", limit))
	}
	return v
}

// Pattern fails when a non-empty value does not match pattern. Empty
// values are left to Required.
func (v *Validator) Pattern(field, value, pattern string) *Validator {
	if value == "" {
		return v
	}
	if ok, err := regexp.MatchString(pattern, value); err != nil || !ok {
		v.AddError(field, "does not match required format")
	}
	return v
}

// OneOf fails when a non-empty value is not exactly one of allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" || slices.Contains(allowed, value) {
		return v
	}
	v.AddError(field, "must be one of: "+strings.Join(allowed, ", "))
	return v
}
