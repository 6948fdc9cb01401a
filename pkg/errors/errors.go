// Package errors provides structured error types for openvis.
//
// Every failure that crosses a package boundary (probe, stream, persistence,
// HTTP API) carries a machine-readable [Code] so callers can classify it
// without string matching:
//   - INVALID_*: input validation failures (URL, interval, payload)
//   - connection lifecycle codes (ALREADY_CONNECTED, NOT_CONNECTED, UNREACHABLE)
//   - stream codes emitted by snapshot sources (FETCH_ERROR,
//     INITIAL_CONNECTION_FAILED, MAX_ERRORS_REACHED)
//   - transport codes (TIMEOUT, NETWORK_ERROR, ENDPOINT_NOT_FOUND)
//
// # Usage
//
//	err := errors.New(errors.ErrCodeAlreadyConnected, "already connected to %s", url)
//	if errors.Is(err, errors.ErrCodeAlreadyConnected) {
//	    // ignore duplicate connect
//	}
//
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "probe %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidURL      Code = "INVALID_URL"
	ErrCodeInvalidInterval Code = "INVALID_INTERVAL"
	ErrCodeValidation      Code = "VALIDATION_ERROR"

	// Connection lifecycle errors
	ErrCodeAlreadyConnected Code = "ALREADY_CONNECTED"
	ErrCodeNotConnected     Code = "NOT_CONNECTED"
	ErrCodeUnreachable      Code = "UNREACHABLE"

	// Stream errors reported by snapshot sources
	ErrCodeFetch                   Code = "FETCH_ERROR"
	ErrCodeInitialConnectionFailed Code = "INITIAL_CONNECTION_FAILED"
	ErrCodeMaxErrorsReached        Code = "MAX_ERRORS_REACHED"

	// Network errors
	ErrCodeNetwork          Code = "NETWORK_ERROR"
	ErrCodeTimeout          Code = "TIMEOUT"
	ErrCodeEndpointNotFound Code = "ENDPOINT_NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsFatalStreamCode reports whether a stream error code ends the connection.
// Only a failed first fetch and too many consecutive failures are fatal;
// every other code is a transient warning.
func IsFatalStreamCode(code Code) bool {
	return code == ErrCodeInitialConnectionFailed || code == ErrCodeMaxErrorsReached
}
