// Package errors provides structured error types for taskgraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, HTTP API and editor
//   - Machine-readable codes that UIs can switch on to render inline feedback
//   - Error wrapping with context preservation
//
// The same codes double as the Kind of rule-engine issues (see package
// rules), so a rejected edit and a failed request speak one vocabulary.
//
// # Error Codes
//
// Codes follow a loose naming convention:
//   - INVALID_*: malformed input or configuration
//   - *_NOT_FOUND: referenced entity does not exist
//   - dependency rule kinds: SELF_DEPENDENCY, CIRCULAR_DEPENDENCY, ...
//   - edit outcomes: REJECTED, CONFIRMATION_REQUIRED
//   - STORAGE_ERROR / INTERNAL_ERROR: operational failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeTaskNotFound, "task %q not found", id)
//	if errors.Is(err, errors.ErrCodeTaskNotFound) {
//	    // Handle missing task
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStorage, origErr, "load project %s", projectID)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Input and configuration errors.
const (
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
)

// Resource not found errors.
const (
	ErrCodeNotFound           Code = "NOT_FOUND"
	ErrCodeTaskNotFound       Code = "TASK_NOT_FOUND"
	ErrCodeProjectNotFound    Code = "PROJECT_NOT_FOUND"
	ErrCodeDependencyNotFound Code = "DEPENDENCY_NOT_FOUND"
)

// Dependency rule kinds. Hard errors block an edit; PREREQUISITE_COMPLETED
// is reported as a warning.
const (
	ErrCodeSelfDependency          Code = "SELF_DEPENDENCY"
	ErrCodeDependencyExists        Code = "DEPENDENCY_EXISTS"
	ErrCodeCrossProject            Code = "CROSS_PROJECT_DEPENDENCY"
	ErrCodeOwnerMismatch           Code = "OWNER_MISMATCH"
	ErrCodeMaxDependenciesExceeded Code = "MAX_DEPENDENCIES_EXCEEDED"
	ErrCodeMaxDepthExceeded        Code = "MAX_DEPTH_EXCEEDED"
	ErrCodeCircularDependency      Code = "CIRCULAR_DEPENDENCY"
	ErrCodePrerequisiteCompleted   Code = "PREREQUISITE_COMPLETED"
)

// Integrity scan findings.
const (
	ErrCodeOrphanedDependency Code = "ORPHANED_DEPENDENCY"
	ErrCodeIsolatedTask       Code = "ISOLATED_TASK"
	ErrCodeLongChain          Code = "LONG_CHAIN"
)

// Edit outcomes.
const (
	ErrCodeRejected             Code = "REJECTED"
	ErrCodeConfirmationRequired Code = "CONFIRMATION_REQUIRED"
)

// Operational errors.
const (
	ErrCodeStorage     Code = "STORAGE_ERROR"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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
