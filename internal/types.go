// internal/types.go - Common types for internal packages
package internal

import (
	"context"
	"errors"
)

// DriverType identifies how encoded rows reach the destination
type DriverType string

const (
	DriverPgx    DriverType = "pgx"
	DriverPQ     DriverType = "pq"
	DriverScript DriverType = "script"
)

// Error represents application-specific errors
type Error struct {
	Code       string
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new application error
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewStatusError creates a fetch error carrying the HTTP status code returned by the server
func NewStatusError(statusCode int, message string) *Error {
	return &Error{
		Code:       ErrorCodeFetch,
		Message:    message,
		StatusCode: statusCode,
	}
}

// ErrorCode constants for the failure taxonomy
const (
	ErrorCodeConfig     = "CONFIG_ERROR"
	ErrorCodeFetch      = "FETCH_ERROR"
	ErrorCodeDecode     = "DECODE_ERROR"
	ErrorCodeProjection = "PROJECTION_ERROR"
	ErrorCodeEncoding   = "ENCODING_ERROR"
	ErrorCodeLoad       = "LOAD_ERROR"
	ErrorCodeCanceled   = "CANCELED"
	ErrorCodeInternal   = "INTERNAL_ERROR"
)

// CodeOf returns the taxonomy code of err. Context cancellation maps to
// ErrorCodeCanceled and anything unclassified to ErrorCodeInternal.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeCanceled
	}
	return ErrorCodeInternal
}

// StatusCodeOf returns the HTTP status recorded on err, or 0
func StatusCodeOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 0
}

// IsConfigError reports whether err is a configuration-level failure
func IsConfigError(err error) bool {
	return CodeOf(err) == ErrorCodeConfig
}
