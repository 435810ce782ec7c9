package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for Inquest errors.
type ErrorCode string

// Plan validation error codes. Validation failures are always fatal to the
// run and are raised before or at dispatch, never retried.
const (
	PLAN_INVALID            ErrorCode = "PLAN_INVALID"
	PLAN_DUPLICATE_STEP     ErrorCode = "PLAN_DUPLICATE_STEP"
	PLAN_UNKNOWN_DEPENDENCY ErrorCode = "PLAN_UNKNOWN_DEPENDENCY"
	PLAN_CYCLE              ErrorCode = "PLAN_CYCLE"
	PLAN_PARSE_FAILED       ErrorCode = "PLAN_PARSE_FAILED"
)

// Tool invocation error codes.
const (
	TOOL_UNKNOWN          ErrorCode = "TOOL_UNKNOWN"
	TOOL_BAD_PARAMS       ErrorCode = "TOOL_BAD_PARAMS"
	TOOL_EXECUTION_FAILED ErrorCode = "TOOL_EXECUTION_FAILED"
	TOOL_TIMEOUT          ErrorCode = "TOOL_TIMEOUT"
	TOOL_ALREADY_EXISTS   ErrorCode = "TOOL_ALREADY_EXISTS"
	TOOL_INVALID          ErrorCode = "TOOL_INVALID"
)

// Run lifecycle error codes.
const (
	RUN_CANCELLED        ErrorCode = "RUN_CANCELLED"
	RUN_DEADLOCK         ErrorCode = "RUN_DEADLOCK"
	STEP_BLOCKED         ErrorCode = "STEP_BLOCKED"
	AUDIT_SINK_FAILED    ErrorCode = "AUDIT_SINK_FAILED"
	CONFIG_LOAD_FAILED   ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_INVALID       ErrorCode = "CONFIG_INVALID"
	EVENT_STORE_FAILED   ErrorCode = "EVENT_STORE_FAILED"
	EVENT_STORE_THROTTLE ErrorCode = "EVENT_STORE_THROTTLE"
)

// Error represents a structured error with error code, message, and optional
// cause. It supports error wrapping and carries a retryability hint used by
// the engine to distinguish transient tool failures from permanent ones.
type Error struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// NewError creates a new non-retryable Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewRetryableError creates a new retryable Error. Use this for transient
// failures that may succeed on retry, such as event store throttling or
// connectivity loss.
func NewRetryableError(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// WrapError creates a new non-retryable Error that wraps an existing error.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapRetryableError creates a new retryable Error that wraps an existing error.
func WrapRetryableError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// IsRetryable reports whether err carries a retryable hint anywhere in its
// unwrap chain.
func IsRetryable(err error) bool {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Retryable
	}
	return false
}

// CodeOf extracts the error code from err, or empty if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}
