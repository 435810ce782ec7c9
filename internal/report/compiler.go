package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/inquestai/inquest/internal/engine"
	"github.com/inquestai/inquest/internal/plan"
	"github.com/inquestai/inquest/internal/types"
)

// maxSummaryLen bounds the per-step result summary in the compiled report.
// Full payloads stay on the RunResult; the report carries a digest.
const maxSummaryLen = 280

// StepReport is the compiled view of one step's terminal outcome.
type StepReport struct {
	StepID      types.ID        `json:"step_id"`
	Tool        string          `json:"tool"`
	Description string          `json:"description,omitempty"`
	Status      plan.StepStatus `json:"status"`
	Summary     string          `json:"summary,omitempty"`
	Error       string          `json:"error,omitempty"`
	BlockedBy   types.ID        `json:"blocked_by,omitempty"`
	Attempts    int             `json:"attempts"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Summary holds the per-status step counts of a run.
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Blocked   int `json:"blocked"`
	Cancelled int `json:"cancelled"`
}

// Report is the compiled outcome of a run: verdict, per-status counts, and
// one entry per step in plan declaration order.
type Report struct {
	RunID       types.ID       `json:"run_id"`
	Goal        string         `json:"goal,omitempty"`
	Verdict     engine.Verdict `json:"verdict"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	Summary     Summary        `json:"summary"`
	Steps       []StepReport   `json:"steps"`
}

// Compile builds a report from a plan and its run result. It is a pure
// function of its inputs: no I/O, no clock reads, no mutation of either
// argument. Steps appear in plan declaration order.
func Compile(p *plan.Plan, res *engine.RunResult) Report {
	r := Report{
		RunID:       res.RunID,
		Goal:        res.Goal,
		Verdict:     res.Verdict,
		StartedAt:   res.StartedAt,
		CompletedAt: res.CompletedAt,
		Summary:     Summary{Total: len(res.Steps)},
		Steps:       make([]StepReport, 0, len(res.Steps)),
	}

	for _, sr := range res.Steps {
		sc := StepReport{
			StepID:      sr.StepID,
			Tool:        sr.Tool,
			Status:      sr.Status,
			Error:       sr.Error,
			BlockedBy:   sr.BlockedBy,
			Attempts:    sr.Attempts,
			StartedAt:   sr.StartedAt,
			CompletedAt: sr.CompletedAt,
		}
		if s := p.Step(sr.StepID); s != nil {
			sc.Description = s.Description
		}
		if sr.Status == plan.StepStatusCompleted {
			sc.Summary = summarizePayload(sr.Payload)
		}
		r.Steps = append(r.Steps, sc)

		switch sr.Status {
		case plan.StepStatusCompleted:
			r.Summary.Completed++
		case plan.StepStatusFailed:
			r.Summary.Failed++
		case plan.StepStatusBlocked:
			r.Summary.Blocked++
		case plan.StepStatusCancelled:
			r.Summary.Cancelled++
		}
	}

	return r
}

// summarizePayload renders a compact, deterministic digest of a result
// payload: top-level keys in sorted order with scalar values inline and
// composite values reduced to their size.
func summarizePayload(payload map[string]any) string {
	if len(payload) == 0 {
		return ""
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		switch v := payload[k].(type) {
		case nil:
			out += fmt.Sprintf("%s=null", k)
		case string:
			out += fmt.Sprintf("%s=%q", k, v)
		case bool, float64, float32, int, int64:
			out += fmt.Sprintf("%s=%v", k, v)
		case []any:
			out += fmt.Sprintf("%s=[%d items]", k, len(v))
		case map[string]any:
			out += fmt.Sprintf("%s={%d fields}", k, len(v))
		default:
			out += fmt.Sprintf("%s=%v", k, v)
		}
		if len(out) > maxSummaryLen {
			return out[:maxSummaryLen] + "..."
		}
	}
	return out
}

// RenderJSON renders the report as indented JSON.
func RenderJSON(r Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
