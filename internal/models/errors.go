package models

import (
	"errors"
	"fmt"
)

// ErrGradeOverlap indicates two grades would share at least one day.
var ErrGradeOverlap = errors.New("grade date range overlaps another grade")

// ValidationError reports invalid input detected before anything is persisted.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError builds a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
