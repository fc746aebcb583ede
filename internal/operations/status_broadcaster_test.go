package operations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zomatoclean/pkg/contracts/events"
)

type recordingHub struct {
	mu        sync.Mutex
	snapshots []*OperationSnapshot
}

func (h *recordingHub) BroadcastUpdate(eventType, step, status string, metadata interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := metadata.(*OperationSnapshot); ok && eventType == EventTypeOperationSnapshot {
		h.snapshots = append(h.snapshots, s)
	}
}

func TestStatusBroadcasterLifecycle(t *testing.T) {
	hub := &recordingHub{}
	sb := NewStatusBroadcaster(hub, nil)
	steps := []Step{newFakeStep(StepIDLoad), newFakeStep(StepIDClean, StepIDLoad)}

	sb.CreateOperation("run-1", steps)
	sb.StartOperation("run-1")
	sb.StartStep("run-1", StepIDLoad)

	snap, ok := sb.GetSnapshot("run-1")
	require.True(t, ok)
	assert.Equal(t, events.StatusRunning, snap.Status)
	assert.Equal(t, StepIDLoad, snap.CurrentStep)
	assert.Equal(t, 0, snap.Progress)

	sb.CompleteStep("run-1", StepIDLoad, "loaded", map[string]interface{}{"rows": 4})
	snap, _ = sb.GetSnapshot("run-1")
	assert.Equal(t, 50, snap.Progress)
	assert.Equal(t, 4, snap.Steps[0].Metadata["rows"])

	sb.FailStep("run-1", StepIDClean, errors.New("boom"))
	sb.FailOperation("run-1", errors.New("boom"))
	snap, _ = sb.GetSnapshot("run-1")
	assert.Equal(t, events.StatusFailed, snap.Status)
	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, "boom", snap.Steps[1].Error)
	require.NotNil(t, snap.CompletedAt)
	assert.Empty(t, snap.CurrentStep)

	hub.mu.Lock()
	defer hub.mu.Unlock()
	assert.Len(t, hub.snapshots, 6, "every update publishes a full snapshot")
}

func TestStatusBroadcasterSnapshotsAreCopies(t *testing.T) {
	sb := NewStatusBroadcaster(nil, nil)
	sb.CreateOperation("run-1", []Step{newFakeStep("a")})

	snap, _ := sb.GetSnapshot("run-1")
	snap.Steps[0].Status = "tampered"

	again, _ := sb.GetSnapshot("run-1")
	assert.Equal(t, events.StatusPending, again.Steps[0].Status)
}

func TestStatusBroadcasterUnknownStepIsIgnored(t *testing.T) {
	sb := NewStatusBroadcaster(nil, nil)
	sb.CreateOperation("run-1", []Step{newFakeStep("a")})
	sb.CompleteStep("run-1", "ghost", "done", nil)

	snap, _ := sb.GetSnapshot("run-1")
	assert.Len(t, snap.Steps, 1)
	assert.Equal(t, events.StatusPending, snap.Steps[0].Status)
}

func TestStatusBroadcasterCleanup(t *testing.T) {
	sb := NewStatusBroadcaster(nil, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sb.now = func() time.Time { return now }

	sb.CreateOperation("old", nil)
	sb.CompleteOperation("old", "done")
	sb.CreateOperation("active", nil)
	sb.StartOperation("active")

	now = now.Add(2 * time.Hour)
	sb.CreateOperation("new", nil)
	sb.CompleteOperation("new", "done")

	removed := sb.CleanupOldOperations(context.Background(), time.Hour)
	assert.Equal(t, 1, removed)

	_, ok := sb.GetSnapshot("old")
	assert.False(t, ok)
	all := sb.GetAllSnapshots()
	require.Len(t, all, 2)
	assert.Equal(t, "new", all[0].OperationID)
}
