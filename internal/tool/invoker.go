package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/inquestai/inquest/internal/types"
)

// Invoker provides the uniform invocation path for registered tools: name
// lookup, parameter validation against the tool's compiled schema, timeout
// enforcement, and error classification. The invoker is stateless; auditing
// every invocation is the caller's responsibility.
type Invoker struct {
	registry *Registry
}

// NewInvoker creates an Invoker backed by the given registry.
func NewInvoker(registry *Registry) *Invoker {
	return &Invoker{registry: registry}
}

// Invoke looks up and executes a tool with a per-call timeout.
//
// Error contract:
//   - TOOL_UNKNOWN: no tool registered under name (checked at dispatch time,
//     tools may be registered after plan submission)
//   - TOOL_BAD_PARAMS: params rejected by the tool's parameter schema
//   - TOOL_TIMEOUT: the call exceeded timeout
//   - RUN_CANCELLED: the surrounding context was cancelled mid-call
//   - anything else: the tool's own classified failure
func (inv *Invoker) Invoke(ctx context.Context, name string, params map[string]any, timeout time.Duration) (map[string]any, error) {
	t, schema, err := inv.registry.Get(name)
	if err != nil {
		return nil, err
	}

	normalized, err := normalizeParams(params)
	if err != nil {
		return nil, types.WrapError(types.TOOL_BAD_PARAMS, fmt.Sprintf("parameters for tool %q are not JSON-representable", name), err)
	}
	if err := schema.Validate(normalized); err != nil {
		return nil, types.WrapError(types.TOOL_BAD_PARAMS, fmt.Sprintf("parameters for tool %q rejected by schema", name), err)
	}

	// Tools see the normalized copy: canonical JSON types regardless of the
	// plan's source format, and no shared mutable state with the plan.
	callParams, _ := normalized.(map[string]any)

	callCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, execErr := t.Execute(callCtx, callParams)
	if execErr == nil {
		// A tool that ignored cancellation may still have produced a result;
		// the run-level signal wins and the result is discarded.
		if ctx.Err() != nil {
			return nil, types.WrapError(types.RUN_CANCELLED, fmt.Sprintf("tool %q result discarded after cancellation", name), ctx.Err())
		}
		return result, nil
	}

	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled):
		return nil, types.WrapError(types.RUN_CANCELLED, fmt.Sprintf("tool %q aborted by cancellation", name), ctx.Err())
	case errors.Is(execErr, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return nil, types.WrapError(types.TOOL_TIMEOUT, fmt.Sprintf("tool %q did not return within %s", name, timeout), execErr)
	default:
		return nil, execErr
	}
}

// normalizeParams round-trips params through JSON so schema validation sees
// canonical JSON types regardless of whether the plan came from YAML or JSON.
func normalizeParams(params map[string]any) (any, error) {
	if params == nil {
		params = map[string]any{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
