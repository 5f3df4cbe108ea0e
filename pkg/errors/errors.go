// Package errors provides structured error types for procflow.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI, API and the sync coordinator
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow the failure taxonomy of the compiler:
//   - VALIDATION_*: table input that cannot be built (or repaired with warnings)
//   - PARSE_ERROR: malformed graph-description text
//   - GENERATION_ERROR: a serializer could not produce its output
//   - COLLABORATOR_*: analysis/enrichment endpoint failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDuplicateStep, "duplicate step id %q", id)
//	if errors.Is(err, errors.ErrCodeDuplicateStep) {
//	    // Handle duplicate id
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeCollaborator, origErr, "enrichment request failed")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Table validation errors
	ErrCodeEmptyInput    Code = "VALIDATION_EMPTY_INPUT"
	ErrCodeDuplicateStep Code = "VALIDATION_DUPLICATE_STEP"
	ErrCodeInvalidRow    Code = "VALIDATION_INVALID_ROW"
	ErrCodeDanglingRef   Code = "VALIDATION_DANGLING_REFERENCE"

	// Text notation errors
	ErrCodeParse Code = "PARSE_ERROR"

	// Serializer errors
	ErrCodeGeneration Code = "GENERATION_ERROR"

	// External collaborator errors
	ErrCodeCollaborator Code = "COLLABORATOR_ERROR"
	ErrCodeNetwork      Code = "NETWORK_ERROR"
	ErrCodeTimeout      Code = "TIMEOUT"

	// Generic errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeInternal      Code = "INTERNAL_ERROR"
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
