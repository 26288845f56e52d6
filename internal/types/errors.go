package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for parapet errors.
type ErrorCode string

// Plan validation error codes. All of these reject a plan before any
// primitive has been invoked.
const (
	PLAN_MALFORMED       ErrorCode = "PLAN_MALFORMED"
	PRIMITIVE_UNKNOWN    ErrorCode = "PRIMITIVE_UNKNOWN"
	TYPE_MISMATCH        ErrorCode = "TYPE_MISMATCH"
	REFERENCE_UNRESOLVED ErrorCode = "REFERENCE_UNRESOLVED"
)

// Registry error codes
const (
	PRIMITIVE_DUPLICATE ErrorCode = "PRIMITIVE_DUPLICATE"
	REGISTRY_FROZEN     ErrorCode = "REGISTRY_FROZEN"
)

// Execution error codes
const (
	PRIMITIVE_EXECUTION_FAILED ErrorCode = "PRIMITIVE_EXECUTION_FAILED"
	EXECUTION_CANCELLED        ErrorCode = "EXECUTION_CANCELLED"
	FIREWALL_VIOLATION         ErrorCode = "FIREWALL_VIOLATION"
)

// Controller error codes
const (
	BUDGET_EXCEEDED  ErrorCode = "BUDGET_EXCEEDED"
	PLANNER_FAILED   ErrorCode = "PLANNER_FAILED"
	EVALUATOR_FAILED ErrorCode = "EVALUATOR_FAILED"
)

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// ParapetError represents a structured error with error code, message, and
// optional cause. It supports error wrapping and retryability hints.
// Firewall violations are never retryable; the flag exists so collaborators
// can distinguish transient faults (planner timeouts) from structural ones.
type ParapetError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *ParapetError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
func (e *ParapetError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
func (e *ParapetError) Is(target error) bool {
	var perr *ParapetError
	if errors.As(target, &perr) {
		return e.Code == perr.Code
	}
	return false
}

// NewError creates a new non-retryable ParapetError with the given code and message.
func NewError(code ErrorCode, message string) *ParapetError {
	return &ParapetError{
		Code:    code,
		Message: message,
	}
}

// NewRetryableError creates a new retryable ParapetError with the given code
// and message. Use this for transient errors that may succeed on retry.
func NewRetryableError(code ErrorCode, message string) *ParapetError {
	return &ParapetError{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// WrapError creates a new non-retryable ParapetError that wraps an existing
// error. The wrapped error is accessible via Unwrap() for chain inspection.
func WrapError(code ErrorCode, message string, cause error) *ParapetError {
	return &ParapetError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf extracts the ErrorCode from err, or "" if err carries no ParapetError.
func CodeOf(err error) ErrorCode {
	var perr *ParapetError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return ""
}
