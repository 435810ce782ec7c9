package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/inquestai/inquest/internal/types"
)

// Action is the kind of scheduling or invocation event being recorded.
type Action string

const (
	ActionResolved   Action = "resolved"
	ActionDispatched Action = "dispatched"
	ActionCompleted  Action = "completed"
	ActionFailed     Action = "failed"
	ActionBlocked    Action = "blocked"
	ActionCancelled  Action = "cancelled"
)

// Entry is one append-only audit record. Entry IDs are ULIDs so persisted
// records sort lexically in occurrence order.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     types.ID       `json:"run_id"`
	StepID    types.ID       `json:"step_id,omitempty"`
	Action    Action         `json:"action"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// Sink persists batches of audit entries.
type Sink interface {
	Write(ctx context.Context, entries []Entry) error
}

// Trail is the append-only audit record for runs. Appending never fails the
// run: entries accumulate in memory and an asynchronous flusher pushes them
// to the sink, retrying on sink errors. Entries are never dropped before run
// completion; durability across a process crash is explicitly not guaranteed.
type Trail struct {
	mu      sync.Mutex
	pending []Entry
	journal []Entry

	sink     Sink
	logger   *slog.Logger
	interval time.Duration

	notify chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
}

// TrailOption is a functional option for configuring a Trail.
type TrailOption func(*Trail)

// WithTrailLogger configures the logger used to report sink write failures.
func WithTrailLogger(l *slog.Logger) TrailOption {
	return func(t *Trail) {
		t.logger = l
	}
}

// WithFlushInterval configures how often the background flusher drains
// pending entries to the sink.
func WithFlushInterval(d time.Duration) TrailOption {
	return func(t *Trail) {
		if d > 0 {
			t.interval = d
		}
	}
}

// NewTrail creates a Trail writing to the given sink and starts its
// background flusher. A nil sink keeps entries in memory only.
func NewTrail(sink Sink, opts ...TrailOption) *Trail {
	t := &Trail{
		sink:     sink,
		logger:   slog.Default(),
		interval: time.Second,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(t)
	}

	t.wg.Add(1)
	go t.flushLoop()

	return t
}

// Append records an entry. It assigns the entry ID and timestamp when unset
// and never returns an error; sink trouble is absorbed by the flusher.
func (t *Trail) Append(e Entry) {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	t.mu.Lock()
	t.pending = append(t.pending, e)
	t.journal = append(t.journal, e)
	t.mu.Unlock()

	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// Entries returns a snapshot of every entry appended so far, in occurrence
// order, regardless of whether the sink has acknowledged them yet.
func (t *Trail) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, len(t.journal))
	copy(out, t.journal)
	return out
}

// Flush synchronously drains all pending entries to the sink, retrying until
// the context expires. Called at run completion so nothing is silently lost.
func (t *Trail) Flush(ctx context.Context) error {
	for {
		if err := t.flushOnce(ctx); err == nil {
			return nil
		} else if ctx.Err() != nil {
			return types.WrapError(types.AUDIT_SINK_FAILED, "audit flush abandoned", err)
		}

		select {
		case <-ctx.Done():
			return types.WrapError(types.AUDIT_SINK_FAILED, "audit flush abandoned", ctx.Err())
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Close stops the background flusher after a final drain attempt.
func (t *Trail) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := t.Flush(ctx)

	close(t.done)
	t.wg.Wait()
	return err
}

func (t *Trail) flushLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-t.notify:
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), t.interval)
		if err := t.flushOnce(ctx); err != nil {
			// Entries stay queued; the next tick retries.
			t.logger.Warn("audit sink write failed, will retry", "error", err)
		}
		cancel()
	}
}

// flushOnce pushes the current pending batch to the sink. On failure the
// batch is requeued ahead of anything appended meanwhile, preserving order.
func (t *Trail) flushOnce(ctx context.Context) error {
	t.mu.Lock()
	batch := t.pending
	t.pending = nil
	t.mu.Unlock()

	if len(batch) == 0 || t.sink == nil {
		return nil
	}

	if err := t.sink.Write(ctx, batch); err != nil {
		t.mu.Lock()
		t.pending = append(batch, t.pending...)
		t.mu.Unlock()
		return err
	}
	return nil
}
