package engine

import (
	"time"

	"github.com/inquestai/inquest/internal/plan"
	"github.com/inquestai/inquest/internal/types"
)

// Verdict is the overall outcome of a run.
type Verdict string

const (
	// VerdictSuccess indicates every step completed.
	VerdictSuccess Verdict = "success"

	// VerdictPartialFailure indicates a mix of completed and failed or
	// blocked steps.
	VerdictPartialFailure Verdict = "partial_failure"

	// VerdictFailed indicates no non-cancelled step completed.
	VerdictFailed Verdict = "failed"

	// VerdictCancelled indicates cancellation was invoked before natural
	// completion.
	VerdictCancelled Verdict = "cancelled"
)

// String returns the string representation of the verdict.
func (v Verdict) String() string {
	return string(v)
}

// StepResult is the terminal outcome of one step.
type StepResult struct {
	StepID      types.ID        `json:"step_id"`
	Tool        string          `json:"tool"`
	Status      plan.StepStatus `json:"status"`
	Payload     map[string]any  `json:"payload,omitempty"`
	Error       string          `json:"error,omitempty"`
	BlockedBy   types.ID        `json:"blocked_by,omitempty"`
	Attempts    int             `json:"attempts"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// RunResult is the aggregated outcome of a run. Steps appear in plan
// declaration order, independent of actual completion order.
type RunResult struct {
	RunID       types.ID     `json:"run_id"`
	Goal        string       `json:"goal,omitempty"`
	Verdict     Verdict      `json:"verdict"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	Steps       []StepResult `json:"steps"`
}

// StepResult returns the result for the given step, or nil if absent.
func (r *RunResult) StepResult(id types.ID) *StepResult {
	for i := range r.Steps {
		if r.Steps[i].StepID == id {
			return &r.Steps[i]
		}
	}
	return nil
}
