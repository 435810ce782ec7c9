package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inquestai/inquest/internal/types"
)

func TestParseYAMLNativeFormat(t *testing.T) {
	doc := []byte(`
goal: investigate failed SSH logins
steps:
  - id: build
    tool: build_query
    params:
      query_string: "sshd AND failure"
      time_range: "2d"
  - id: search
    tool: search_logs
    depends_on: [build]
`)

	p, err := ParseYAML(doc)
	require.NoError(t, err)

	assert.Equal(t, "investigate failed SSH logins", p.Goal)
	assert.False(t, p.RunID.IsZero())
	require.Len(t, p.Steps, 2)

	assert.Equal(t, types.ID("build"), p.Steps[0].ID)
	assert.Equal(t, "build_query", p.Steps[0].Tool)
	assert.Equal(t, "sshd AND failure", p.Steps[0].Params["query_string"])
	assert.Equal(t, StepStatusPending, p.Steps[0].Status)

	assert.Equal(t, []types.ID{"build"}, p.Steps[1].DependsOn)
}

func TestParseJSONLegacyPlannerFormat(t *testing.T) {
	doc := []byte(`{
  "plans": [
    {"task_id": "1", "sub_task": "Find SSH brute-force attempts", "dependent_on_tasks": [], "tool_name": "build_query"},
    {"task_id": "2", "sub_task": "Search failed SSH login logs", "dependent_on_tasks": ["1"], "tool_name": "search_raw_logs"}
  ]
}`)

	p, err := ParseJSON(doc)
	require.NoError(t, err)
	require.Len(t, p.Steps, 2)

	assert.Equal(t, types.ID("1"), p.Steps[0].ID)
	assert.Equal(t, "build_query", p.Steps[0].Tool)
	assert.Equal(t, "Find SSH brute-force attempts", p.Steps[0].Description)
	assert.Equal(t, "Find SSH brute-force attempts", p.Steps[0].Params["query_string"])

	// Legacy tool names are normalized and sub_task feeds the query param.
	assert.Equal(t, "search_logs", p.Steps[1].Tool)
	assert.Equal(t, "Search failed SSH login logs", p.Steps[1].Params["query"])
	assert.Equal(t, []types.ID{"1"}, p.Steps[1].DependsOn)
}

func TestParseLegacySubTaskDoesNotOverrideParams(t *testing.T) {
	doc := []byte(`{
  "plans": [
    {"task_id": "1", "sub_task": "ignored", "tool_name": "build_query", "params": {"query_string": "explicit"}}
  ]
}`)

	p, err := ParseJSON(doc)
	require.NoError(t, err)
	assert.Equal(t, "explicit", p.Steps[0].Params["query_string"])
}

func TestParseRejectsStepWithoutID(t *testing.T) {
	_, err := ParseYAML([]byte("steps:\n  - tool: search_logs\n"))
	require.Error(t, err)
	assert.Equal(t, types.PLAN_INVALID, types.CodeOf(err))
}

func TestParseRejectsStepWithoutTool(t *testing.T) {
	_, err := ParseYAML([]byte("steps:\n  - id: a\n"))
	require.Error(t, err)
	assert.Equal(t, types.PLAN_INVALID, types.CodeOf(err))
}

func TestParseRejectsEmptyDocument(t *testing.T) {
	_, err := ParseYAML([]byte("goal: nothing to do\n"))
	require.Error(t, err)
	assert.Equal(t, types.PLAN_INVALID, types.CodeOf(err))
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := ParseYAML([]byte("steps: [unclosed"))
	require.Error(t, err)
	assert.Equal(t, types.PLAN_PARSE_FAILED, types.CodeOf(err))
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - id: a\n    tool: search_alerts\n"), 0o644))

	p, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, p.Steps, 1)
	assert.Equal(t, "search_alerts", p.Steps[0].Tool)

	_, err = ParseFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, types.PLAN_PARSE_FAILED, types.CodeOf(err))
}

func TestParsePreservesRunID(t *testing.T) {
	id := types.NewID()
	p, err := ParseJSON([]byte(`{"run_id": "` + id.String() + `", "steps": [{"id": "a", "tool": "build_query"}]}`))
	require.NoError(t, err)
	assert.Equal(t, id, p.RunID)
}
