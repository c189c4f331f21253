// Package errors provides the code-based error type used across the service.
// Every caller-visible failure carries one of the codes below; the HTTP layer
// maps codes to status lines and callers branch on codes, never on messages.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes.
const (
	ErrCodeValidation   = "VALIDATION"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeUnavailable  = "UNAVAILABLE"
	ErrCodeInternal     = "INTERNAL"
)

// Error is a code-tagged error with an optional wrapped cause.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an error with a code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// NotFound reports a missing resource by kind and identifier.
func NotFound(kind, id string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s %q not found", kind, id)}
}

// InvalidInput reports a validation failure on a named field.
func InvalidInput(field, reason string) *Error {
	return &Error{Code: ErrCodeValidation, Message: fmt.Sprintf("%s: %s", field, reason)}
}

// InvalidState reports an operation attempted against the wrong lifecycle state.
func InvalidState(message string) *Error {
	return &Error{Code: ErrCodeConflict, Message: message}
}

// Unauthorized reports an actor not entitled to perform the operation.
func Unauthorized(message string) *Error {
	return &Error{Code: ErrCodeUnauthorized, Message: message}
}

// Transient reports a retryable backend failure (lock contention, timeouts).
func Transient(err error, message string) *Error {
	return &Error{Code: ErrCodeUnavailable, Message: message, cause: err}
}

// Code extracts the error code, defaulting to INTERNAL for untagged errors.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// IsRetryable reports whether the caller may safely retry the operation.
func IsRetryable(err error) bool {
	return Code(err) == ErrCodeUnavailable
}

// HTTPStatus maps an error to the HTTP status code the handler should write.
func HTTPStatus(err error) int {
	switch Code(err) {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeUnauthorized:
		return http.StatusForbidden
	case ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
