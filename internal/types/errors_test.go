package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  NewError(TOOL_UNKNOWN, "tool \"nmap\" not found"),
			want: `[TOOL_UNKNOWN] tool "nmap" not found`,
		},
		{
			name: "with cause",
			err:  WrapError(EVENT_STORE_FAILED, "search failed", errors.New("connection refused")),
			want: "[EVENT_STORE_FAILED] search failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorIs(t *testing.T) {
	err := WrapError(TOOL_TIMEOUT, "deadline exceeded", errors.New("context deadline exceeded"))

	assert.True(t, errors.Is(err, NewError(TOOL_TIMEOUT, "anything")))
	assert.False(t, errors.Is(err, NewError(TOOL_UNKNOWN, "anything")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(TOOL_EXECUTION_FAILED, "tool failed", cause)

	require.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("outer: %w", err)
	var ie *Error
	require.ErrorAs(t, wrapped, &ie)
	assert.Equal(t, TOOL_EXECUTION_FAILED, ie.Code)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewRetryableError(EVENT_STORE_THROTTLE, "429")))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", WrapRetryableError(EVENT_STORE_FAILED, "conn reset", errors.New("reset")))))
	assert.False(t, IsRetryable(NewError(TOOL_BAD_PARAMS, "missing field")))
	assert.False(t, IsRetryable(errors.New("plain error")))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, PLAN_CYCLE, CodeOf(NewError(PLAN_CYCLE, "cycle")))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}
