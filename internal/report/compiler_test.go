package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inquestai/inquest/internal/engine"
	"github.com/inquestai/inquest/internal/plan"
	"github.com/inquestai/inquest/internal/types"
)

func testFixture() (*plan.Plan, *engine.RunResult) {
	started := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	t1 := started.Add(time.Second)
	t2 := started.Add(2 * time.Second)

	p := plan.New("suspicious login investigation")
	p.AddStep(&plan.Step{ID: "query", Tool: "build_query", Description: "build the base query"})
	p.AddStep(&plan.Step{ID: "logs", Tool: "search_logs", DependsOn: []types.ID{"query"}})
	p.AddStep(&plan.Step{ID: "alerts", Tool: "search_alerts", DependsOn: []types.ID{"logs"}})

	res := &engine.RunResult{
		RunID:       p.RunID,
		Goal:        p.Goal,
		Verdict:     engine.VerdictPartialFailure,
		StartedAt:   started,
		CompletedAt: t2,
		Steps: []engine.StepResult{
			{
				StepID: "query", Tool: "build_query", Status: plan.StepStatusCompleted,
				Payload:  map[string]any{"query": "user.name:root", "clauses": []any{"a", "b"}},
				Attempts: 1, StartedAt: &started, CompletedAt: &t1,
			},
			{
				StepID: "logs", Tool: "search_logs", Status: plan.StepStatusFailed,
				Error: "search backend unavailable", Attempts: 3, StartedAt: &t1, CompletedAt: &t2,
			},
			{
				StepID: "alerts", Tool: "search_alerts", Status: plan.StepStatusBlocked,
				BlockedBy: "logs",
			},
		},
	}
	return p, res
}

func TestCompile(t *testing.T) {
	p, res := testFixture()

	r := Compile(p, res)

	assert.Equal(t, res.RunID, r.RunID)
	assert.Equal(t, engine.VerdictPartialFailure, r.Verdict)
	assert.Equal(t, Summary{Total: 3, Completed: 1, Failed: 1, Blocked: 1}, r.Summary)

	require.Len(t, r.Steps, 3)
	assert.Equal(t, types.ID("query"), r.Steps[0].StepID)
	assert.Equal(t, "build the base query", r.Steps[0].Description)
	assert.Equal(t, `clauses=[2 items], query="user.name:root"`, r.Steps[0].Summary)

	assert.Equal(t, plan.StepStatusFailed, r.Steps[1].Status)
	assert.Equal(t, "search backend unavailable", r.Steps[1].Error)
	assert.Equal(t, 3, r.Steps[1].Attempts)
	assert.Empty(t, r.Steps[1].Summary, "failed steps carry no result summary")

	assert.Equal(t, plan.StepStatusBlocked, r.Steps[2].Status)
	assert.Equal(t, types.ID("logs"), r.Steps[2].BlockedBy)
}

func TestCompileIsPure(t *testing.T) {
	p, res := testFixture()

	first := Compile(p, res)
	second := Compile(p, res)

	assert.Equal(t, first, second)
	// Inputs stay untouched.
	assert.Equal(t, "search backend unavailable", res.Steps[1].Error)
	assert.Len(t, p.Steps, 3)
}

func TestSummarizePayloadTruncation(t *testing.T) {
	long := strings.Repeat("x", 2*maxSummaryLen)
	got := summarizePayload(map[string]any{"blob": long})

	assert.LessOrEqual(t, len(got), maxSummaryLen+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSummarizePayloadEmpty(t *testing.T) {
	assert.Empty(t, summarizePayload(nil))
	assert.Empty(t, summarizePayload(map[string]any{}))
}

func TestRenderJSONRoundTrip(t *testing.T) {
	p, res := testFixture()
	r := Compile(p, res)

	raw, err := RenderJSON(r)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, r.RunID, decoded.RunID)
	assert.Equal(t, r.Verdict, decoded.Verdict)
	assert.Equal(t, r.Summary, decoded.Summary)
}

func TestRenderText(t *testing.T) {
	p, res := testFixture()
	r := Compile(p, res)

	out := string(RenderText(r))

	assert.Contains(t, out, "Verdict: partial_failure")
	assert.Contains(t, out, "3 total, 1 completed, 1 failed, 1 blocked, 0 cancelled")
	assert.Contains(t, out, "[ok] query (build_query)")
	assert.Contains(t, out, "[failed] logs (search_logs)")
	assert.Contains(t, out, "error: search backend unavailable")
	assert.Contains(t, out, "blocked by: logs")
}
