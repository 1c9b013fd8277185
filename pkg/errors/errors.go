package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError represents a rejected request, either a field-level
// validation failure or a precondition the caller got wrong.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewBadRequestError creates a validation error that is reported to the
// caller verbatim, without the "validation failed" prefix.
func NewBadRequestError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s - %s", e.Field, e.Message)
	}
	return e.Message
}

// Kind returns the machine-readable error kind
func (e *ValidationError) Kind() string { return "bad_request" }

// HTTPStatus returns the HTTP status code for this error
func (e *ValidationError) HTTPStatus() int { return http.StatusBadRequest }

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Kind returns the machine-readable error kind
func (e *NotFoundError) Kind() string { return "not_found" }

// HTTPStatus returns the HTTP status code for this error
func (e *NotFoundError) HTTPStatus() int { return http.StatusNotFound }

// ConflictError represents a request that collides with the current state
// of a resource, such as a duplicate signup or a full activity.
type ConflictError struct {
	Resource string
	Message  string
}

// NewConflictError creates a new conflict error
func NewConflictError(resource, message string) *ConflictError {
	return &ConflictError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s conflict", e.Resource)
}

// Kind returns the machine-readable error kind
func (e *ConflictError) Kind() string { return "conflict" }

// HTTPStatus returns the HTTP status code for this error.
// The browser client expects 400 for signup conflicts.
func (e *ConflictError) HTTPStatus() int { return http.StatusBadRequest }

// InternalError represents an internal server error with context
type InternalError struct {
	Message string
	Err     error
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *InternalError {
	return &InternalError{
		Message: message,
		Err:     err,
	}
}

// Error implements the error interface
func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *InternalError) Unwrap() error {
	return e.Err
}

// Kind returns the machine-readable error kind
func (e *InternalError) Kind() string { return "internal_error" }

// HTTPStatus returns the HTTP status code for this error
func (e *InternalError) HTTPStatus() int { return http.StatusInternalServerError }

// AppError is implemented by every error type in this package.
type AppError interface {
	error
	Kind() string
	HTTPStatus() int
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (AppError, bool) {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
