package events

import (
	"time"

	"github.com/inquestai/inquest/internal/types"
)

// EventType identifies the category of a run lifecycle event.
type EventType string

// Run lifecycle events.
const (
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"
	EventRunCancelled EventType = "run.cancelled"
)

// Step lifecycle events.
const (
	EventStepDispatched EventType = "step.dispatched"
	EventStepCompleted  EventType = "step.completed"
	EventStepFailed     EventType = "step.failed"
	EventStepBlocked    EventType = "step.blocked"
	EventStepCancelled  EventType = "step.cancelled"
	EventStepRetrying   EventType = "step.retrying"
)

// Event is a single run or step lifecycle notification.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     types.ID       `json:"run_id"`
	StepID    types.ID       `json:"step_id,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
}
