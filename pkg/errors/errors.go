package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Collaboration errors
	ErrorTypeInvalidOperation   ErrorType = "INVALID_OPERATION"
	ErrorTypeUnknownDocument    ErrorType = "UNKNOWN_DOCUMENT"
	ErrorTypeAccessDenied       ErrorType = "ACCESS_DENIED"
	ErrorTypePersistenceFailure ErrorType = "PERSISTENCE_FAILURE"
	ErrorTypeLoadFailure        ErrorType = "LOAD_FAILURE"

	// Generic errors
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

// AppError represents an application-specific error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// WithRetryable marks whether the caller may retry the failed call
func (e *AppError) WithRetryable(retryable bool) *AppError {
	e.Retryable = retryable
	return e
}

// Constructor functions for common error types

// NewInvalidOperationError creates an invalid operation error. The authoring
// session is informed and its operation dropped; document state is untouched.
func NewInvalidOperationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidOperation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewUnknownDocumentError creates an error for operations that target a
// document with no loaded state
func NewUnknownDocumentError(documentID string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnknownDocument,
		Message:    fmt.Sprintf("document %s has no active state", documentID),
		HTTPStatus: http.StatusNotFound,
	}
}

// NewAccessDeniedError creates an access denied error, terminal for the join
// attempt that triggered it
func NewAccessDeniedError(message string) *AppError {
	if message == "" {
		message = "document not found or access denied"
	}
	return &AppError{
		Type:       ErrorTypeAccessDenied,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewPersistenceFailureError creates a persistence failure error. These are
// retryable: pending operations stay in memory until the next checkpoint.
func NewPersistenceFailureError(operation string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypePersistenceFailure,
		Message:    fmt.Sprintf("persistence operation '%s' failed", operation),
		Cause:      err,
		Retryable:  true,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// NewLoadFailureError creates an error for a cold load that failed entirely
func NewLoadFailureError(documentID string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeLoadFailure,
		Message:    fmt.Sprintf("failed to load document %s", documentID),
		Cause:      err,
		Retryable:  true,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Helper functions

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return IsType(err, ErrorTypeInvalidOperation)
}

// IsUnknownDocument checks if an error is an unknown document error
func IsUnknownDocument(err error) bool {
	return IsType(err, ErrorTypeUnknownDocument)
}

// IsAccessDenied checks if an error is an access denied error
func IsAccessDenied(err error) bool {
	return IsType(err, ErrorTypeAccessDenied)
}

// IsPersistenceFailure checks if an error is a persistence failure
func IsPersistenceFailure(err error) bool {
	return IsType(err, ErrorTypePersistenceFailure)
}

// IsLoadFailure checks if an error is a load failure
func IsLoadFailure(err error) bool {
	return IsType(err, ErrorTypeLoadFailure)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
