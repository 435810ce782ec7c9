package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/inquestai/inquest/internal/types"
)

// Registry is the capability registry mapping tool names to implementations.
// Parameter schemas are compiled and checked at registration time, not at
// call time. The registry is safe for concurrent use; during a run it is
// only read.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*registered
}

type registered struct {
	tool   Tool
	schema *jsonschema.Schema
}

// NewRegistry creates an empty capability registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*registered),
	}
}

// Register adds a tool to the registry, compiling its parameter schema.
// Returns TOOL_INVALID for a nil or unnamed tool or an uncompilable schema,
// and TOOL_ALREADY_EXISTS for duplicate names.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return types.NewError(types.TOOL_INVALID, "tool cannot be nil")
	}

	name := t.Name()
	if name == "" {
		return types.NewError(types.TOOL_INVALID, "tool name cannot be empty")
	}

	schema, err := compileSchema(t.InputSchema())
	if err != nil {
		return types.WrapError(types.TOOL_INVALID, fmt.Sprintf("tool %q has an invalid parameter schema", name), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return types.NewError(types.TOOL_ALREADY_EXISTS, fmt.Sprintf("tool %q already registered", name))
	}

	r.tools[name] = &registered{tool: t, schema: schema}
	return nil
}

// Unregister removes a tool from the registry by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return types.NewError(types.TOOL_UNKNOWN, fmt.Sprintf("tool %q not found", name))
	}

	delete(r.tools, name)
	return nil
}

// Get retrieves a tool and its compiled schema by name.
func (r *Registry) Get(name string) (Tool, *jsonschema.Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, exists := r.tools[name]
	if !exists {
		return nil, nil, types.NewError(types.TOOL_UNKNOWN, fmt.Sprintf("tool %q not found", name))
	}

	return reg.tool, reg.schema, nil
}

// List returns descriptors for all registered tools, sorted by name.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(r.tools))
	for _, reg := range r.tools {
		descriptors = append(descriptors, Descriptor{
			Name:        reg.tool.Name(),
			Description: reg.tool.Description(),
			InputSchema: reg.tool.InputSchema(),
		})
	}

	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})
	return descriptors
}

// compileSchema compiles a JSON Schema given as a Go map. A nil schema
// defaults to an unconstrained object.
func compileSchema(params map[string]any) (*jsonschema.Schema, error) {
	if params == nil {
		params = map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}

	data, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return c.Compile("schema.json")
}
