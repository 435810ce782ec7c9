package tool

import (
	"github.com/inquestai/inquest/internal/types"
)

// Transient wraps a tool failure that is expected to succeed on retry, such
// as event store throttling or a dropped connection. The engine retries
// transient failures with backoff up to its configured attempt bound.
func Transient(message string, cause error) error {
	return types.WrapRetryableError(types.TOOL_EXECUTION_FAILED, message, cause)
}

// Permanent wraps a tool failure that will not succeed on retry.
func Permanent(message string, cause error) error {
	return types.WrapError(types.TOOL_EXECUTION_FAILED, message, cause)
}

// IsTransient reports whether err is a tool failure the engine may retry.
func IsTransient(err error) bool {
	return types.IsRetryable(err)
}
