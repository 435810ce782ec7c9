package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/inquestai/inquest/internal/plan"
)

// RenderText renders the report for terminal output: a header with the run
// identity and verdict, a per-status summary line, and one block per step.
func RenderText(r Report) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Run %s\n", r.RunID)
	if r.Goal != "" {
		fmt.Fprintf(&buf, "Goal: %s\n", r.Goal)
	}
	fmt.Fprintf(&buf, "Verdict: %s\n", r.Verdict)
	fmt.Fprintf(&buf, "Duration: %s\n", r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(&buf, "Steps: %d total, %d completed, %d failed, %d blocked, %d cancelled\n",
		r.Summary.Total, r.Summary.Completed, r.Summary.Failed, r.Summary.Blocked, r.Summary.Cancelled)
	buf.WriteString("\n")

	for _, s := range r.Steps {
		fmt.Fprintf(&buf, "[%s] %s (%s)\n", statusMark(s.Status), s.StepID, s.Tool)
		if s.Description != "" {
			fmt.Fprintf(&buf, "    %s\n", s.Description)
		}

		switch s.Status {
		case plan.StepStatusCompleted:
			if s.Summary != "" {
				fmt.Fprintf(&buf, "    result: %s\n", s.Summary)
			}
			if s.Attempts > 1 {
				fmt.Fprintf(&buf, "    attempts: %d\n", s.Attempts)
			}
		case plan.StepStatusFailed:
			fmt.Fprintf(&buf, "    error: %s\n", s.Error)
			fmt.Fprintf(&buf, "    attempts: %d\n", s.Attempts)
		case plan.StepStatusBlocked:
			fmt.Fprintf(&buf, "    blocked by: %s\n", s.BlockedBy)
		}
	}

	return buf.Bytes()
}

func statusMark(s plan.StepStatus) string {
	switch s {
	case plan.StepStatusCompleted:
		return "ok"
	case plan.StepStatusFailed:
		return "failed"
	case plan.StepStatusBlocked:
		return "blocked"
	case plan.StepStatusCancelled:
		return "cancelled"
	default:
		return string(s)
	}
}
