package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inquestai/inquest/internal/types"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := OpenStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreWriteAndQueryByRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	runID := types.NewID()
	otherRun := types.NewID()

	entries := []Entry{
		{ID: "01AAAAAAAAAAAAAAAAAAAAAAAA", RunID: runID, Action: ActionResolved, Timestamp: time.Now().UTC()},
		{ID: "01BBBBBBBBBBBBBBBBBBBBBBBB", RunID: runID, StepID: "a", Action: ActionDispatched, Timestamp: time.Now().UTC(), Detail: map[string]any{"tool": "search_logs"}},
		{ID: "01CCCCCCCCCCCCCCCCCCCCCCCC", RunID: runID, StepID: "a", Action: ActionCompleted, Timestamp: time.Now().UTC()},
	}
	require.NoError(t, store.Write(ctx, entries))
	require.NoError(t, store.Write(ctx, []Entry{
		{ID: "01DDDDDDDDDDDDDDDDDDDDDDDD", RunID: otherRun, Action: ActionResolved, Timestamp: time.Now().UTC()},
	}))

	got, err := store.QueryByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, ActionResolved, got[0].Action)
	assert.True(t, got[0].StepID.IsZero())

	assert.Equal(t, ActionDispatched, got[1].Action)
	assert.Equal(t, types.ID("a"), got[1].StepID)
	assert.Equal(t, "search_logs", got[1].Detail["tool"])

	assert.Equal(t, ActionCompleted, got[2].Action)
}

func TestStoreQueryUnknownRun(t *testing.T) {
	store := openTestStore(t)

	got, err := store.QueryByRun(context.Background(), types.NewID())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStoreWriteEmptyBatch(t *testing.T) {
	store := openTestStore(t)
	assert.NoError(t, store.Write(context.Background(), nil))
}

func TestTrailWithSQLiteStore(t *testing.T) {
	store := openTestStore(t)
	trail := NewTrail(store, WithFlushInterval(10*time.Millisecond))

	runID := types.NewID()
	trail.Append(Entry{RunID: runID, Action: ActionDispatched, StepID: "a"})
	trail.Append(Entry{RunID: runID, Action: ActionCompleted, StepID: "a"})
	require.NoError(t, trail.Close())

	got, err := store.QueryByRun(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ActionDispatched, got[0].Action)
	assert.Equal(t, ActionCompleted, got[1].Action)
}
