package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inquestai/inquest/internal/types"
)

func TestStepStatusIsTerminal(t *testing.T) {
	terminal := []StepStatus{StepStatusCompleted, StepStatusFailed, StepStatusBlocked, StepStatusCancelled}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "status %s", s)
	}

	nonTerminal := []StepStatus{StepStatusPending, StepStatusReady, StepStatusRunning}
	for _, s := range nonTerminal {
		assert.False(t, s.IsTerminal(), "status %s", s)
	}
}

func TestNewPlan(t *testing.T) {
	p := New("hunt lateral movement")

	assert.Equal(t, "hunt lateral movement", p.Goal)
	require.NoError(t, types.ID(p.RunID).Validate())
	assert.False(t, p.CreatedAt.IsZero())
	assert.Empty(t, p.Steps)
}

func TestPlanStepLookup(t *testing.T) {
	p := New("test")
	p.AddStep(&Step{ID: "a", Tool: "build_query"})

	require.NotNil(t, p.Step("a"))
	assert.Equal(t, StepStatusPending, p.Step("a").Status)
	assert.Nil(t, p.Step("missing"))
}
