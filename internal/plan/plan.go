package plan

import (
	"time"

	"github.com/inquestai/inquest/internal/types"
)

// StepStatus represents the current status of a plan step.
type StepStatus string

const (
	// StepStatusPending indicates the step is waiting on its dependencies.
	StepStatusPending StepStatus = "pending"

	// StepStatusReady indicates every dependency has completed and the step
	// is eligible for dispatch.
	StepStatusReady StepStatus = "ready"

	// StepStatusRunning indicates the step has been dispatched to a worker.
	StepStatusRunning StepStatus = "running"

	// StepStatusCompleted indicates the tool invocation succeeded.
	StepStatusCompleted StepStatus = "completed"

	// StepStatusFailed indicates the tool invocation failed permanently,
	// including after exhausting retries.
	StepStatusFailed StepStatus = "failed"

	// StepStatusBlocked indicates a direct or transitive dependency failed;
	// the step was never dispatched.
	StepStatusBlocked StepStatus = "blocked"

	// StepStatusCancelled indicates the run was cancelled before or during
	// the step's execution.
	StepStatusCancelled StepStatus = "cancelled"
)

// String returns the string representation of the step status.
func (s StepStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status can never change again.
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StepStatusCompleted, StepStatusFailed, StepStatusBlocked, StepStatusCancelled:
		return true
	default:
		return false
	}
}

// Step is one unit of work in an investigation plan: a tool invocation with
// parameters and declared dependencies on other steps in the same plan.
type Step struct {
	ID          types.ID       `json:"id" yaml:"id"`
	Tool        string         `json:"tool" yaml:"tool"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Params      map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	DependsOn   []types.ID     `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`

	// Execution state. Mutated only through the engine's coordinating path.
	Status      StepStatus     `json:"status" yaml:"-"`
	Result      map[string]any `json:"result,omitempty" yaml:"-"`
	Error       string         `json:"error,omitempty" yaml:"-"`
	BlockedBy   types.ID       `json:"blocked_by,omitempty" yaml:"-"`
	Attempts    int            `json:"attempts" yaml:"-"`
	StartedAt   *time.Time     `json:"started_at,omitempty" yaml:"-"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" yaml:"-"`
}

// Plan is the complete set of steps and their dependencies for one
// investigation run. Step order is declaration order; it drives final report
// ordering only, never execution order.
type Plan struct {
	RunID     types.ID  `json:"run_id" yaml:"run_id"`
	Goal      string    `json:"goal,omitempty" yaml:"goal,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Steps     []*Step   `json:"steps" yaml:"steps"`
}

// New creates an empty plan with a fresh run identity.
func New(goal string) *Plan {
	return &Plan{
		RunID:     types.NewID(),
		Goal:      goal,
		CreatedAt: time.Now().UTC(),
	}
}

// Step returns the step with the given ID, or nil if absent.
func (p *Plan) Step(id types.ID) *Step {
	for _, s := range p.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// AddStep appends a step in declaration order and normalizes its status.
func (p *Plan) AddStep(s *Step) {
	if s.Status == "" {
		s.Status = StepStatusPending
	}
	p.Steps = append(p.Steps, s)
}
