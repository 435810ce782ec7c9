package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/inquestai/inquest/internal/audit"
	"github.com/inquestai/inquest/internal/events"
	"github.com/inquestai/inquest/internal/plan"
	"github.com/inquestai/inquest/internal/tool"
	"github.com/inquestai/inquest/internal/types"
)

// Engine drives plans from pending to a terminal state: it resolves the
// dependency graph, dispatches ready steps to a bounded worker pool through
// the tool invoker, retries transient failures with backoff, cascades
// blocked status through dependents of failed steps, and aggregates the
// outcomes into a RunResult.
//
// All step status and graph mutations happen on one coordinating goroutine
// per run; workers only execute the tool call and report back over a
// channel. The coordinating path never blocks on tool I/O.
type Engine struct {
	invoker     *tool.Invoker
	resolver    *plan.Resolver
	logger      *slog.Logger
	tracer      trace.Tracer
	trail       *audit.Trail
	bus         *events.Bus
	concurrency int
	stepTimeout time.Duration
	retry       RetryPolicy

	mu     sync.RWMutex
	active map[types.ID]*runState
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithConcurrency bounds how many steps may run at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithStepTimeout configures the per-step invocation timeout.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.stepTimeout = d
		}
	}
}

// WithRetryPolicy configures transient-failure retry bounds and backoff.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Engine) {
		if p.MaxAttempts > 0 {
			e.retry = p
		}
	}
}

// WithLogger configures the structured logger used for run execution logging.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithTracer configures the OpenTelemetry tracer for run and step spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithAuditTrail configures the audit trail recording every scheduling
// decision and invocation outcome.
func WithAuditTrail(t *audit.Trail) Option {
	return func(e *Engine) {
		e.trail = t
	}
}

// WithEventBus configures the bus receiving run and step lifecycle events.
func WithEventBus(b *events.Bus) Option {
	return func(e *Engine) {
		e.bus = b
	}
}

// New creates an Engine with the given invoker and options.
// Default configuration:
//   - concurrency: 4
//   - stepTimeout: 60 seconds
//   - retry: DefaultRetryPolicy
//   - logger: slog.Default()
//   - no tracer, no audit trail, no event bus
func New(invoker *tool.Invoker, opts ...Option) *Engine {
	e := &Engine{
		invoker:     invoker,
		resolver:    plan.NewResolver(),
		logger:      slog.Default(),
		concurrency: 4,
		stepTimeout: 60 * time.Second,
		retry:       DefaultRetryPolicy(),
		active:      make(map[types.ID]*runState),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// runState is the per-run mutable state owned by the coordinating
// goroutine. The statuses mirror exists only so StepStatuses can serve
// non-blocking progress queries from other goroutines.
type runState struct {
	graph *plan.Graph

	mu       sync.RWMutex
	statuses map[types.ID]plan.StepStatus
}

func newRunState(p *plan.Plan, g *plan.Graph) *runState {
	statuses := make(map[types.ID]plan.StepStatus, len(p.Steps))
	for _, s := range p.Steps {
		statuses[s.ID] = s.Status
	}
	return &runState{graph: g, statuses: statuses}
}

func (st *runState) setStatus(id types.ID, s plan.StepStatus) {
	st.mu.Lock()
	st.statuses[id] = s
	st.mu.Unlock()
}

func (st *runState) snapshot() map[types.ID]plan.StepStatus {
	st.mu.RLock()
	defer st.mu.RUnlock()

	out := make(map[types.ID]plan.StepStatus, len(st.statuses))
	for id, s := range st.statuses {
		out[id] = s
	}
	return out
}

// StepStatuses returns the current status of every step of an in-flight
// run without blocking on execution. The second return is false once the
// run has finished or was never started.
func (e *Engine) StepStatuses(runID types.ID) (map[types.ID]plan.StepStatus, bool) {
	e.mu.RLock()
	st, ok := e.active[runID]
	e.mu.RUnlock()

	if !ok {
		return nil, false
	}
	return st.snapshot(), true
}

// stepInvocation is the immutable view of a step handed to a worker.
type stepInvocation struct {
	id       types.ID
	toolName string
	params   map[string]any
	upstream tool.Upstream
}

// stepOutcome is a worker's report back to the coordinating goroutine.
type stepOutcome struct {
	id       types.ID
	status   plan.StepStatus
	payload  map[string]any
	err      error
	attempts int
}

// Execute runs the plan to completion and returns the aggregated result.
//
// A validation failure (duplicate identities, unknown dependency, cycle)
// aborts before any tool call with zero side effects. After execution
// starts, individual step failures are modeled outcomes, not errors: the
// returned error is non-nil only for validation failures or an internal
// scheduling fault.
func (e *Engine) Execute(ctx context.Context, p *plan.Plan) (*RunResult, error) {
	graph, err := e.resolver.Resolve(p)
	if err != nil {
		return nil, err
	}

	var span trace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "run.execute",
			trace.WithAttributes(
				attribute.String("run.id", p.RunID.String()),
				attribute.Int("run.steps", len(p.Steps)),
			),
		)
		defer span.End()
	}

	startedAt := time.Now().UTC()
	st := newRunState(p, graph)

	e.mu.Lock()
	e.active[p.RunID] = st
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.active, p.RunID)
		e.mu.Unlock()
	}()

	e.audit(audit.Entry{RunID: p.RunID, Action: audit.ActionResolved, Detail: map[string]any{
		"steps": len(p.Steps),
	}})
	e.publish(events.RunEvent(events.EventRunStarted, p.RunID, map[string]any{"steps": len(p.Steps)}))
	e.logger.InfoContext(ctx, "starting run",
		"run_id", p.RunID,
		"steps", len(p.Steps),
		"concurrency", e.concurrency,
	)

	agg := NewAggregator()
	outcomes := make(chan stepOutcome)
	var queue []*plan.Step
	running := 0
	cancelled := false

	for {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
			e.logger.WarnContext(ctx, "run cancellation requested", "run_id", p.RunID)
		}

		if !cancelled {
			ready := graph.ReadySteps()
			for _, s := range ready {
				st.setStatus(s.ID, plan.StepStatusReady)
			}
			queue = append(queue, ready...)
			for running < e.concurrency && len(queue) > 0 {
				s := queue[0]
				queue = queue[1:]
				// A queued step may have been blocked by a failure that
				// cascaded while it waited for a worker slot.
				if s.Status != plan.StepStatusReady {
					continue
				}
				e.dispatch(ctx, p, st, s, outcomes)
				running++
			}
		}

		if running == 0 {
			if cancelled || allTerminal(p) {
				break
			}
			if len(queue) == 0 {
				// Unreachable for a validated acyclic graph; failures always
				// cascade blocked status so the plan keeps draining.
				return nil, types.NewError(types.RUN_DEADLOCK,
					fmt.Sprintf("run %s has no runnable steps but is not complete", p.RunID))
			}
			continue
		}

		if cancelled {
			out := <-outcomes
			running--
			e.apply(ctx, p, st, graph, agg, out)
			continue
		}

		select {
		case out := <-outcomes:
			running--
			e.apply(ctx, p, st, graph, agg, out)
		case <-ctx.Done():
			cancelled = true
		}
	}

	if cancelled {
		e.cancelRemaining(ctx, p, st, agg)
	}

	verdict := computeVerdict(p, cancelled)
	result := &RunResult{
		RunID:       p.RunID,
		Goal:        p.Goal,
		Verdict:     verdict,
		StartedAt:   startedAt,
		CompletedAt: time.Now().UTC(),
		Steps:       agg.Finalize(p),
	}

	runAction := audit.ActionCompleted
	runEvent := events.EventRunCompleted
	if verdict == VerdictCancelled {
		runAction = audit.ActionCancelled
		runEvent = events.EventRunCancelled
	}
	e.audit(audit.Entry{RunID: p.RunID, Action: runAction, Detail: map[string]any{
		"verdict": verdict.String(),
	}})
	e.publish(events.RunEvent(runEvent, p.RunID, map[string]any{"verdict": verdict.String()}))

	if span != nil {
		span.SetAttributes(attribute.String("run.verdict", verdict.String()))
		if verdict == VerdictFailed {
			span.SetStatus(codes.Error, "run failed")
		}
	}

	e.logger.InfoContext(ctx, "run finished",
		"run_id", p.RunID,
		"verdict", verdict,
		"duration", result.CompletedAt.Sub(result.StartedAt),
	)

	if e.trail != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.trail.Flush(flushCtx); err != nil {
			e.logger.Error("audit trail flush failed", "run_id", p.RunID, "error", err)
		}
	}

	return result, nil
}

// dispatch transitions a ready step to running, records the decision, and
// hands the invocation to a worker goroutine.
func (e *Engine) dispatch(ctx context.Context, p *plan.Plan, st *runState, s *plan.Step, outcomes chan<- stepOutcome) {
	now := time.Now().UTC()
	s.Status = plan.StepStatusRunning
	s.StartedAt = &now
	st.setStatus(s.ID, plan.StepStatusRunning)

	upstream := make(tool.Upstream)
	for _, depID := range st.graph.Dependencies(s.ID) {
		if dep := p.Step(depID); dep != nil && dep.Result != nil {
			upstream[depID.String()] = dep.Result
		}
	}

	e.audit(audit.Entry{RunID: p.RunID, StepID: s.ID, Action: audit.ActionDispatched, Detail: map[string]any{
		"tool": s.Tool,
	}})
	e.publish(events.StepEvent(events.EventStepDispatched, p.RunID, s.ID, map[string]any{"tool": s.Tool}))
	e.logger.DebugContext(ctx, "dispatching step", "run_id", p.RunID, "step_id", s.ID, "tool", s.Tool)

	inv := stepInvocation{
		id:       s.ID,
		toolName: s.Tool,
		params:   s.Params,
		upstream: upstream,
	}

	go e.runStep(ctx, p.RunID, inv, outcomes)
}

// runStep executes one step on a worker goroutine, retrying transient tool
// failures with backoff up to the configured attempt bound. It blocks only
// on the tool invocation and the backoff timer.
func (e *Engine) runStep(ctx context.Context, runID types.ID, inv stepInvocation, outcomes chan<- stepOutcome) {
	var span trace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "step.execute",
			trace.WithAttributes(
				attribute.String("step.id", inv.id.String()),
				attribute.String("step.tool", inv.toolName),
			),
		)
		defer span.End()
	}

	callCtx := tool.WithUpstream(ctx, inv.upstream)
	bo := e.retry.newBackOff()
	attempts := 0

	for {
		attempts++
		payload, err := e.invoker.Invoke(callCtx, inv.toolName, inv.params, e.stepTimeout)

		switch {
		case err == nil:
			outcomes <- stepOutcome{id: inv.id, status: plan.StepStatusCompleted, payload: payload, attempts: attempts}
			return

		case types.CodeOf(err) == types.RUN_CANCELLED:
			if span != nil {
				span.SetStatus(codes.Error, "cancelled")
			}
			outcomes <- stepOutcome{id: inv.id, status: plan.StepStatusCancelled, err: err, attempts: attempts}
			return

		case tool.IsTransient(err) && attempts < e.retry.MaxAttempts:
			wait := bo.NextBackOff()
			if wait == backoff.Stop {
				break
			}
			e.logger.WarnContext(ctx, "transient step failure, retrying",
				"run_id", runID,
				"step_id", inv.id,
				"attempt", attempts,
				"backoff", wait,
				"error", err,
			)
			e.publish(events.StepEvent(events.EventStepRetrying, runID, inv.id, map[string]any{
				"attempt": attempts,
				"error":   err.Error(),
			}))

			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				outcomes <- stepOutcome{
					id:       inv.id,
					status:   plan.StepStatusCancelled,
					err:      types.WrapError(types.RUN_CANCELLED, "cancelled while awaiting retry", ctx.Err()),
					attempts: attempts,
				}
				return
			}
		}

		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "step failed")
		}
		outcomes <- stepOutcome{id: inv.id, status: plan.StepStatusFailed, err: err, attempts: attempts}
		return
	}
}

// apply folds a worker outcome back into the run on the coordinating
// goroutine: terminal status, audit, events, aggregation, and blocked
// propagation for failures.
func (e *Engine) apply(ctx context.Context, p *plan.Plan, st *runState, graph *plan.Graph, agg *Aggregator, out stepOutcome) {
	s := p.Step(out.id)
	if s == nil || s.Status.IsTerminal() {
		return
	}

	now := time.Now().UTC()
	s.CompletedAt = &now
	s.Attempts = out.attempts
	s.Status = out.status
	if out.err != nil {
		s.Error = out.err.Error()
	}
	if out.status == plan.StepStatusCompleted {
		s.Result = out.payload
	}
	st.setStatus(s.ID, out.status)
	agg.Record(s)

	switch out.status {
	case plan.StepStatusCompleted:
		e.audit(audit.Entry{RunID: p.RunID, StepID: s.ID, Action: audit.ActionCompleted, Detail: map[string]any{
			"attempts": out.attempts,
		}})
		e.publish(events.StepEvent(events.EventStepCompleted, p.RunID, s.ID, map[string]any{"attempts": out.attempts}))
		e.logger.InfoContext(ctx, "step completed", "run_id", p.RunID, "step_id", s.ID, "attempts", out.attempts)

	case plan.StepStatusCancelled:
		e.audit(audit.Entry{RunID: p.RunID, StepID: s.ID, Action: audit.ActionCancelled, Detail: map[string]any{
			"attempts": out.attempts,
		}})
		e.publish(events.StepEvent(events.EventStepCancelled, p.RunID, s.ID, nil))
		e.logger.InfoContext(ctx, "step cancelled", "run_id", p.RunID, "step_id", s.ID)

	case plan.StepStatusFailed:
		e.audit(audit.Entry{RunID: p.RunID, StepID: s.ID, Action: audit.ActionFailed, Detail: map[string]any{
			"attempts": out.attempts,
			"error":    s.Error,
		}})
		e.publish(events.StepEvent(events.EventStepFailed, p.RunID, s.ID, map[string]any{"error": s.Error}))
		e.logger.WarnContext(ctx, "step failed", "run_id", p.RunID, "step_id", s.ID, "attempts", out.attempts, "error", s.Error)

		for _, b := range graph.PropagateBlocked(s.ID) {
			bNow := time.Now().UTC()
			b.CompletedAt = &bNow
			st.setStatus(b.ID, plan.StepStatusBlocked)
			agg.Record(b)

			e.audit(audit.Entry{RunID: p.RunID, StepID: b.ID, Action: audit.ActionBlocked, Detail: map[string]any{
				"blocked_by": s.ID.String(),
			}})
			e.publish(events.StepEvent(events.EventStepBlocked, p.RunID, b.ID, map[string]any{"blocked_by": s.ID.String()}))
			e.logger.WarnContext(ctx, "step blocked by failed dependency",
				"run_id", p.RunID,
				"step_id", b.ID,
				"blocked_by", s.ID,
			)
		}
	}
}

// cancelRemaining marks every step that never reached a terminal status as
// cancelled once the run-level signal has fired.
func (e *Engine) cancelRemaining(ctx context.Context, p *plan.Plan, st *runState, agg *Aggregator) {
	for _, s := range p.Steps {
		if s.Status.IsTerminal() {
			continue
		}

		now := time.Now().UTC()
		s.Status = plan.StepStatusCancelled
		s.CompletedAt = &now
		st.setStatus(s.ID, plan.StepStatusCancelled)
		agg.Record(s)

		e.audit(audit.Entry{RunID: p.RunID, StepID: s.ID, Action: audit.ActionCancelled, Detail: map[string]any{
			"dispatched": false,
		}})
		e.publish(events.StepEvent(events.EventStepCancelled, p.RunID, s.ID, nil))
		e.logger.InfoContext(ctx, "step cancelled before dispatch", "run_id", p.RunID, "step_id", s.ID)
	}
}

func (e *Engine) audit(entry audit.Entry) {
	if e.trail != nil {
		e.trail.Append(entry)
	}
}

func (e *Engine) publish(evt events.Event) {
	if e.bus != nil {
		e.bus.Publish(evt)
	}
}

func allTerminal(p *plan.Plan) bool {
	for _, s := range p.Steps {
		if !s.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// computeVerdict derives the run verdict from step terminal statuses.
func computeVerdict(p *plan.Plan, cancelled bool) Verdict {
	completed, failedOrBlocked, cancelledSteps := 0, 0, 0
	for _, s := range p.Steps {
		switch s.Status {
		case plan.StepStatusCompleted:
			completed++
		case plan.StepStatusFailed, plan.StepStatusBlocked:
			failedOrBlocked++
		case plan.StepStatusCancelled:
			cancelledSteps++
		}
	}

	if cancelled && cancelledSteps > 0 {
		return VerdictCancelled
	}
	if failedOrBlocked == 0 && cancelledSteps == 0 {
		return VerdictSuccess
	}
	if completed > 0 {
		return VerdictPartialFailure
	}
	return VerdictFailed
}
