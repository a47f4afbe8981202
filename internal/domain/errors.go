package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnauthenticated is returned when a mutating operation has no authenticated actor.
var ErrUnauthenticated = errors.New("authentication required")

// ValidationError reports malformed or out-of-range input, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty validation error ready to collect field messages.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records a message for a field. The first message per field wins.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, exists := e.Fields[field]; exists {
		return
	}
	e.Fields[field] = message
}

// HasErrors reports whether any field failed validation.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// OrNil returns the error when it carries field messages and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, e.Fields[key]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError reports a missing facility, list, entry, employee or user.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

// NewNotFound builds a NotFoundError for the given entity and key.
func NewNotFound(entity string, key any) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

// PermissionDeniedError reports that the permission gate rejected an operation.
type PermissionDeniedError struct {
	Operation string
	Entity    string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s %s", e.Operation, e.Entity)
}

// ConstraintViolationError reports a referential constraint that blocked a write.
type ConstraintViolationError struct {
	Entity string
	Reason string
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
