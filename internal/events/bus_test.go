package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inquestai/inquest/internal/types"
)

func TestBusPublishSubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, cancel := b.Subscribe(4)
	defer cancel()

	runID := types.NewID()
	b.Publish(StepEvent(EventStepDispatched, runID, "a", nil))

	select {
	case evt := <-ch:
		assert.Equal(t, EventStepDispatched, evt.Type)
		assert.Equal(t, runID, evt.RunID)
		assert.Equal(t, types.ID("a"), evt.StepID)
		assert.False(t, evt.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}
}

func TestBusSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, cancel := b.Subscribe(1)
	defer cancel()

	runID := types.NewID()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			b.Publish(RunEvent(EventRunStarted, runID, nil))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}

	// The subscriber still received at least the first event.
	require.NotEmpty(t, ch)
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, cancel := b.Subscribe(1)
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	b.Publish(RunEvent(EventRunCompleted, types.NewID(), nil))
	cancel() // idempotent
}

func TestBusClose(t *testing.T) {
	b := NewBus()
	ch, _ := b.Subscribe(1)

	b.Close()
	_, open := <-ch
	assert.False(t, open)

	b.Publish(RunEvent(EventRunStarted, types.NewID(), nil))
	b.Close() // idempotent

	late, cancel := b.Subscribe(1)
	defer cancel()
	_, open = <-late
	assert.False(t, open)
}
