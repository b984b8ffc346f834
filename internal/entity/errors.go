package entity

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Query errors
	ErrEmptyQuery    = errors.New("query is empty")
	ErrQueryInFlight = errors.New("a query is already in flight")

	// Ingestion errors
	ErrEmptySubmission = errors.New("No files selected")
	ErrIngestInFlight  = errors.New("an ingestion of this kind is already in flight")
	ErrInvalidFile     = errors.New("invalid file")
	ErrFileTooLarge    = errors.New("file too large")
	ErrTooManyFiles    = errors.New("too many files")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Validation errors
	ErrValidation       = errors.New("validation failed")
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrMalformedReply   = errors.New("malformed backend response")
)

// ValidationError names the request field that violates a documented constraint.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
