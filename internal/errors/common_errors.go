package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeDataUnavailable   ErrorType = "DATA_UNAVAILABLE"
	ErrTypeMalformedSource   ErrorType = "MALFORMED_SOURCE"
	ErrTypeSchemaGap         ErrorType = "SCHEMA_GAP"
	ErrTypeValidationFailure ErrorType = "VALIDATION_FAILURE"
	ErrTypeNetwork           ErrorType = "NETWORK"
	ErrTypeStorage           ErrorType = "STORAGE"
	ErrTypeNotFound          ErrorType = "NOT_FOUND"
	ErrTypeConflict          ErrorType = "CONFLICT"
	ErrTypeConfig            ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError of the same type, so callers can write
// errors.Is(err, &AppError{Type: ErrTypeDataUnavailable})
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// IsType reports whether err wraps an AppError of type t
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// TypeOf returns the type of the first AppError in err's chain, or "" when none
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// NewDataUnavailableError reports that no source dataset could be located
func NewDataUnavailableError(message string, cause error) *AppError {
	return NewAppError(ErrTypeDataUnavailable, message, cause)
}

// NewMalformedSourceError reports an unparseable or non-rectangular source
func NewMalformedSourceError(path string, cause error) *AppError {
	return NewAppError(ErrTypeMalformedSource, "source could not be parsed into a table", cause).
		WithContext("path", path)
}

// NewSchemaGapError describes an expected column that is absent.
// It is recorded in step reports, not returned from cleaning operations.
func NewSchemaGapError(operation, column string) *AppError {
	return NewAppError(ErrTypeSchemaGap, fmt.Sprintf("%s skipped: column %q not found", operation, column), nil).
		WithContext("operation", operation).
		WithContext("column", column)
}

// NewValidationFailureError summarizes failed validation checks
func NewValidationFailureError(failed []string) *AppError {
	return NewAppError(ErrTypeValidationFailure, fmt.Sprintf("%d validation check(s) failed", len(failed)), nil).
		WithContext("failed_checks", failed)
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return NewAppError(ErrTypeConflict, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
