// Package errors defines domain-specific error types.
// Using typed errors (instead of strings) allows the boundary adapter to pick
// a status code without inspecting messages.
//
// Pattern: Sentinel Errors + Custom Error Types
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common sentinel errors
var (
	ErrInvalidEntityID     = errors.New("invalid entity ID")
	ErrEntityNotFound      = errors.New("entity not found")
	ErrEntityAlreadyExists = errors.New("entity already exists")
	ErrEmptyPatch          = errors.New("update body must be a JSON object")
)

// ValidationError represents a single field that failed validation.
type ValidationError struct {
	Field   string // Field name as seen on the wire (json name)
	Message string // What went wrong, already human readable
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error joins the individual messages; the first one is the most relevant.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Message
	}
	return strings.Join(msgs, "; ")
}

// Add appends a validation error.
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// MissingFieldsError is returned when a persisted row cannot be turned back
// into a domain object: the embedded payload is unusable and the discrete
// columns do not cover every required field.
type MissingFieldsError struct {
	Entity string
	Fields []string
}

// NewMissingFieldsError creates a MissingFieldsError with sorted field names.
func NewMissingFieldsError(entity string, fields ...string) *MissingFieldsError {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	return &MissingFieldsError{Entity: entity, Fields: sorted}
}

// Error implements the error interface.
func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("%s row is missing required fields: %s", e.Entity, strings.Join(e.Fields, ", "))
}

// Helper functions for common error checking

// IsNotFound checks if an error is an "entity not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var valErr ValidationError
	var valErrs ValidationErrors
	return errors.As(err, &valErr) || errors.As(err, &valErrs)
}

// IsMissingFields checks if an error is a row reconstruction failure.
func IsMissingFields(err error) bool {
	var mf *MissingFieldsError
	return errors.As(err, &mf)
}
