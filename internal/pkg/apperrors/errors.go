package apperrors

import (
	"errors"
	"fmt"
)

// Base errors. Every error returned by the service layer wraps one of these.
var (
	ErrUnauthenticated        = errors.New("authentication required")
	ErrTokenInvalid           = errors.New("invalid token")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrResourceNotFound       = errors.New("resource not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrConflict               = errors.New("conflict")
	ErrValidationFailed       = errors.New("validation failed")
	ErrUpstreamUnavailable    = errors.New("upstream service unavailable")
)

// Course errors
var (
	ErrCourseNotFound          = &CustomError{Err: ErrResourceNotFound, Message: "course not found"}
	ErrCourseRequestNotFound   = &CustomError{Err: ErrResourceNotFound, Message: "course request not found"}
	ErrCourseRequestNotPending = &CustomError{Err: ErrInvalidStateTransition, Message: "course request is no longer pending"}
)

// Post errors
var (
	ErrPostNotFound    = &CustomError{Err: ErrResourceNotFound, Message: "post not found"}
	ErrNotCourseMember = &CustomError{Err: ErrPermissionDenied, Message: "you must join the course before posting"}
	ErrUploadNotFound  = &CustomError{Err: ErrValidationFailed, Message: "no uploaded file exists for this storage reference"}
	ErrUploadAttached  = &CustomError{Err: ErrConflict, Message: "this upload is already attached to a post"}
)

// Access errors
var (
	ErrAdminRequired = &CustomError{Err: ErrPermissionDenied, Message: "admin access required"}
)

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Field   string
	Details map[string]interface{}
	// Cause is kept for logging and is never sent to clients
	Cause error
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewResourceNotFoundError creates a not found error with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{Err: ErrResourceNotFound, Message: message}
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) error {
	return &CustomError{Err: ErrValidationFailed, Message: message, Field: field}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{Err: ErrConflict, Message: message}
}

// NewUpstreamError marks a failure of an external collaborator as retryable.
func NewUpstreamError(service string, cause error) error {
	return &CustomError{
		Err:     ErrUpstreamUnavailable,
		Message: fmt.Sprintf("%s unavailable", service),
		Details: map[string]interface{}{"retryable": true},
		Cause:   cause,
	}
}

// Message returns the client facing message of err, falling back to fallback.
func Message(err error, fallback string) string {
	var custom *CustomError
	if errors.As(err, &custom) && custom.Message != "" {
		return custom.Message
	}
	return fallback
}
