// Package errors provides structured error types for pipewright.
//
// Every failure that crosses a package boundary carries a machine-readable
// [Code] so that hosting layers (CLI, service, editing session) can decide how
// to surface it without string matching.
//
// # Error Codes
//
// Codes follow the error taxonomy of the editor core:
//   - UNKNOWN_NODE_TYPE, DUPLICATE_ID: programmer errors, raised as hard failures
//   - CONNECTION_REJECTED: an invalid edge candidate, reported but never fatal
//   - EMPTY_GRAPH: submission attempted with no nodes
//   - SERVICE_UNREACHABLE, HTTP_STATUS, MALFORMED_RESPONSE: submission failures
//   - INVALID_*: input and configuration validation failures
//   - INTERNAL_ERROR: anything unexpected
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownNodeType, "unknown node type %q", key)
//	if errors.Is(err, errors.ErrCodeUnknownNodeType) {
//	    // skip rendering this node
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeServiceUnreachable, origErr, "post %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Graph invariants
	ErrCodeUnknownNodeType    Code = "UNKNOWN_NODE_TYPE"
	ErrCodeDuplicateID        Code = "DUPLICATE_ID"
	ErrCodeConnectionRejected Code = "CONNECTION_REJECTED"

	// Submission errors
	ErrCodeEmptyGraph         Code = "EMPTY_GRAPH"
	ErrCodeServiceUnreachable Code = "SERVICE_UNREACHABLE"
	ErrCodeHTTPStatus         Code = "HTTP_STATUS"
	ErrCodeMalformedResponse  Code = "MALFORMED_RESPONSE"

	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"
	ErrCodeInvalidPayload Code = "INVALID_PAYLOAD"

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

// coder is implemented by typed errors that are not *Error but still belong
// to the taxonomy, such as [HTTPStatusError].
type coder interface {
	Code() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or a typed error with a
// matching code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// As is errors.As from the standard library, re-exported so callers need a
// single errors import.
func As(err error, target any) bool {
	return errors.As(err, target)
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

// HTTPStatusError reports a non-success status returned by a remote service.
type HTTPStatusError struct {
	StatusCode int
	Status     string // Status line text, e.g. "500 Internal Server Error"
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unexpected status: %s", e.Status)
	}
	return fmt.Sprintf("unexpected status: %d", e.StatusCode)
}

// Code returns the error code for this error type.
func (e *HTTPStatusError) Code() Code {
	return ErrCodeHTTPStatus
}
