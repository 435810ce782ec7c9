package engine

import (
	"github.com/inquestai/inquest/internal/plan"
	"github.com/inquestai/inquest/internal/types"
)

// Aggregator collects per-step terminal outcomes keyed by step identity.
// Finalize emits them in plan declaration order regardless of the order in
// which concurrent steps actually finished. It is only touched from the
// engine's coordinating goroutine.
type Aggregator struct {
	results map[types.ID]StepResult
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		results: make(map[types.ID]StepResult),
	}
}

// Record stores the terminal outcome of a step. A step's terminal outcome,
// once recorded, never changes; later records for the same step are ignored.
func (a *Aggregator) Record(s *plan.Step) {
	if _, exists := a.results[s.ID]; exists {
		return
	}

	a.results[s.ID] = StepResult{
		StepID:      s.ID,
		Tool:        s.Tool,
		Status:      s.Status,
		Payload:     s.Result,
		Error:       s.Error,
		BlockedBy:   s.BlockedBy,
		Attempts:    s.Attempts,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
	}
}

// Recorded reports whether the step already has a terminal outcome.
func (a *Aggregator) Recorded(id types.ID) bool {
	_, ok := a.results[id]
	return ok
}

// Finalize returns every step of the plan exactly once, in declaration
// order. Steps without a recorded outcome (which should not occur once the
// run has terminated) are synthesized from their current state so the output
// always enumerates the full plan.
func (a *Aggregator) Finalize(p *plan.Plan) []StepResult {
	out := make([]StepResult, 0, len(p.Steps))
	for _, s := range p.Steps {
		if r, ok := a.results[s.ID]; ok {
			out = append(out, r)
			continue
		}
		out = append(out, StepResult{
			StepID:      s.ID,
			Tool:        s.Tool,
			Status:      s.Status,
			Error:       s.Error,
			BlockedBy:   s.BlockedBy,
			Attempts:    s.Attempts,
			StartedAt:   s.StartedAt,
			CompletedAt: s.CompletedAt,
		})
	}
	return out
}
