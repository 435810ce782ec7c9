package tool

import (
	"context"
)

// Tool represents an external capability invoked by name with a validated
// parameter mapping. Implementations must honor context cancellation and
// deadlines by returning promptly, and classify their failures as transient
// or permanent via the helpers in errors.go so the engine can decide whether
// to retry.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	Description() string

	// InputSchema returns the JSON Schema for the tool's parameter mapping.
	// The schema is compiled and validated once, at registration time.
	InputSchema() map[string]any

	// Execute runs the tool with validated parameters and returns a result
	// payload. Context carries cancellation, the per-step deadline, and the
	// payloads of completed upstream steps (see UpstreamFromContext).
	Execute(ctx context.Context, params map[string]any) (map[string]any, error)
}

// Descriptor contains tool metadata for discovery and introspection.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}
