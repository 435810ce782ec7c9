package tool

import (
	"context"
)

type contextKey int

const upstreamKey contextKey = iota

// Upstream maps a completed dependency's step identifier to its result
// payload. The engine attaches it to the invocation context so tools can
// build on upstream output, most commonly a query produced by build_query.
type Upstream map[string]map[string]any

// WithUpstream returns a context carrying the payloads of the invoking
// step's completed dependencies.
func WithUpstream(ctx context.Context, up Upstream) context.Context {
	if len(up) == 0 {
		return ctx
	}
	return context.WithValue(ctx, upstreamKey, up)
}

// UpstreamFromContext extracts upstream payloads from the invocation context.
// Returns an empty map when the step has no completed dependencies.
func UpstreamFromContext(ctx context.Context) Upstream {
	if up, ok := ctx.Value(upstreamKey).(Upstream); ok {
		return up
	}
	return Upstream{}
}
