package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inquestai/inquest/internal/types"
)

// fakeTool is a configurable Tool implementation for tests.
type fakeTool struct {
	name    string
	desc    string
	schema  map[string]any
	execute func(ctx context.Context, params map[string]any) (map[string]any, error)
}

func (f *fakeTool) Name() string                { return f.name }
func (f *fakeTool) Description() string         { return f.desc }
func (f *fakeTool) InputSchema() map[string]any { return f.schema }

func (f *fakeTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	if f.execute != nil {
		return f.execute(ctx, params)
	}
	return map[string]any{"ok": true}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "search_logs"}))

	got, schema, err := r.Get("search_logs")
	require.NoError(t, err)
	assert.Equal(t, "search_logs", got.Name())
	assert.NotNil(t, schema)
}

func TestRegistryRejectsNilAndUnnamed(t *testing.T) {
	r := NewRegistry()

	err := r.Register(nil)
	require.Error(t, err)
	assert.Equal(t, types.TOOL_INVALID, types.CodeOf(err))

	err = r.Register(&fakeTool{name: ""})
	require.Error(t, err)
	assert.Equal(t, types.TOOL_INVALID, types.CodeOf(err))
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "search_logs"}))

	err := r.Register(&fakeTool{name: "search_logs"})
	require.Error(t, err)
	assert.Equal(t, types.TOOL_ALREADY_EXISTS, types.CodeOf(err))
}

func TestRegistryRejectsBadSchemaAtRegistration(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&fakeTool{
		name:   "broken",
		schema: map[string]any{"type": 42},
	})
	require.Error(t, err)
	assert.Equal(t, types.TOOL_INVALID, types.CodeOf(err))
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()

	_, _, err := r.Get("missing")
	require.Error(t, err)
	assert.Equal(t, types.TOOL_UNKNOWN, types.CodeOf(err))
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "search_logs"}))
	require.NoError(t, r.Unregister("search_logs"))

	_, _, err := r.Get("search_logs")
	assert.Equal(t, types.TOOL_UNKNOWN, types.CodeOf(err))

	err = r.Unregister("search_logs")
	assert.Equal(t, types.TOOL_UNKNOWN, types.CodeOf(err))
}

func TestRegistryListSorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "search_logs", desc: "raw log search"}))
	require.NoError(t, r.Register(&fakeTool{name: "build_query", desc: "query builder"}))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "build_query", list[0].Name)
	assert.Equal(t, "search_logs", list[1].Name)
	assert.Equal(t, "raw log search", list[1].Description)
}
