package events

import (
	"sync"
	"time"

	"github.com/inquestai/inquest/internal/types"
)

const defaultBufferSize = 64

// Bus distributes run lifecycle events to subscribers. Publishing never
// blocks: a subscriber whose buffer is full misses events rather than
// stalling the engine's coordinating path. Other subscribers are unaffected
// by a slow consumer.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]chan Event
	nextID      int
	closed      bool
}

// NewBus creates an event bus with no subscribers.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[int]chan Event),
	}
}

// Publish sends an event to all subscribers without blocking.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			// Subscriber buffer full; drop for this subscriber only.
		}
	}
}

// Subscribe registers a new subscriber and returns its channel together with
// a cancel function. The cancel function must be called to release the
// subscription.
func (b *Bus) Subscribe(bufferSize int) (<-chan Event, func()) {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subscribers[id]; ok {
				delete(b.subscribers, id)
				close(sub)
			}
		})
	}

	return ch, cancel
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}

// StepEvent builds a step-scoped event.
func StepEvent(t EventType, runID, stepID types.ID, detail map[string]any) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		StepID:    stepID,
		Detail:    detail,
	}
}

// RunEvent builds a run-scoped event.
func RunEvent(t EventType, runID types.ID, detail map[string]any) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		Detail:    detail,
	}
}
