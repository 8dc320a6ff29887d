package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Caller errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotInitialized  = errors.New("profile registry not initialized")

	// Storage errors
	ErrNotFound = errors.New("profile not found")
	ErrIO       = errors.New("storage i/o failure")

	// Data errors
	ErrValidation = errors.New("profile validation failed")

	// Save errors
	ErrExhaustedRetries = errors.New("save failed after all attempts")
	ErrIDExhausted      = errors.New("could not generate a unique profile id")
)

// FieldError reports a required field that is missing or empty.
// It matches ErrValidation with errors.Is.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %q %s", ErrValidation, e.Field, e.Reason)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrValidation
}
