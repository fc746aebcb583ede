package operations

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"zomatoclean/pkg/contracts/events"
)

// OperationSnapshot is the only structure published to clients
type OperationSnapshot = events.OperationSnapshot

// StepSnapshot represents the state of a single step within a snapshot
type StepSnapshot = events.StepSnapshot

// StatusBroadcaster is the single authority for run status. It keeps the
// latest snapshot of every run and publishes the full snapshot on each change.
type StatusBroadcaster struct {
	mu         sync.RWMutex
	operations map[string]*OperationSnapshot
	hub        WebSocketHub
	logger     *slog.Logger
	now        func() time.Time
}

// NewStatusBroadcaster creates a new status broadcaster. hub may be nil.
func NewStatusBroadcaster(hub WebSocketHub, logger *slog.Logger) *StatusBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusBroadcaster{
		operations: make(map[string]*OperationSnapshot),
		hub:        hub,
		logger:     logger,
		now:        time.Now,
	}
}

// UpdateStatus applies updateFunc to the run's snapshot and publishes it
func (sb *StatusBroadcaster) UpdateStatus(operationID string, updateFunc func(*OperationSnapshot)) {
	sb.mu.Lock()
	snapshot, exists := sb.operations[operationID]
	if !exists {
		snapshot = &OperationSnapshot{
			OperationID: operationID,
			Status:      events.StatusPending,
			StartedAt:   sb.now(),
			Steps:       []StepSnapshot{},
		}
		sb.operations[operationID] = snapshot
	}

	updateFunc(snapshot)
	snapshot.UpdatedAt = sb.now()
	snapshot.Progress = progressOf(snapshot.Steps)
	if snapshot.IsTerminal() && snapshot.CompletedAt == nil {
		completed := snapshot.UpdatedAt
		snapshot.CompletedAt = &completed
	}
	published := copySnapshot(snapshot)
	sb.mu.Unlock()

	sb.broadcast(published)
}

// progressOf is the share of steps that reached a terminal state
func progressOf(steps []StepSnapshot) int {
	if len(steps) == 0 {
		return 0
	}
	done := 0
	for _, s := range steps {
		if s.Status == events.StatusCompleted || s.Status == events.StatusSkipped || s.Status == events.StatusFailed {
			done++
		}
	}
	return done * 100 / len(steps)
}

func (sb *StatusBroadcaster) broadcast(snapshot *OperationSnapshot) {
	if sb.hub == nil {
		return
	}
	sb.logger.Debug("broadcasting operation snapshot",
		slog.String("operation_id", snapshot.OperationID),
		slog.String("status", snapshot.Status),
		slog.Int("progress", snapshot.Progress),
		slog.String("current_step", snapshot.CurrentStep))
	sb.hub.BroadcastUpdate(EventTypeOperationSnapshot, snapshot.OperationID, snapshot.Status, snapshot)
}

// CreateOperation initializes a run with its steps in execution order
func (sb *StatusBroadcaster) CreateOperation(operationID string, steps []Step) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = events.StatusPending
		snapshot.Steps = make([]StepSnapshot, len(steps))
		for i, step := range steps {
			snapshot.Steps[i] = StepSnapshot{
				ID:     step.ID(),
				Name:   step.Name(),
				Status: events.StatusPending,
			}
		}
		snapshot.Message = "Operation created"
	})
}

// StartOperation marks a run as running
func (sb *StatusBroadcaster) StartOperation(operationID string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = events.StatusRunning
		snapshot.Message = "Operation started"
	})
}

// StartStep marks a step as running
func (sb *StatusBroadcaster) StartStep(operationID, stepID string) {
	sb.updateStep(operationID, stepID, func(snapshot *OperationSnapshot, step *StepSnapshot) {
		step.Status = events.StatusRunning
		step.Message = "Step started"
		snapshot.CurrentStep = step.Name
	})
}

// CompleteStep marks a step as completed and attaches its metadata
func (sb *StatusBroadcaster) CompleteStep(operationID, stepID, message string, metadata map[string]interface{}) {
	sb.updateStep(operationID, stepID, func(_ *OperationSnapshot, step *StepSnapshot) {
		step.Status = events.StatusCompleted
		step.Progress = 100
		step.Message = message
		if metadata != nil {
			step.Metadata = metadata
		}
	})
}

// FailStep marks a step as failed
func (sb *StatusBroadcaster) FailStep(operationID, stepID string, err error) {
	sb.updateStep(operationID, stepID, func(_ *OperationSnapshot, step *StepSnapshot) {
		step.Status = events.StatusFailed
		step.Error = err.Error()
	})
}

// SkipStep marks a step as skipped
func (sb *StatusBroadcaster) SkipStep(operationID, stepID, reason string) {
	sb.updateStep(operationID, stepID, func(_ *OperationSnapshot, step *StepSnapshot) {
		step.Status = events.StatusSkipped
		step.Message = reason
	})
}

func (sb *StatusBroadcaster) updateStep(operationID, stepID string, fn func(*OperationSnapshot, *StepSnapshot)) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		for i := range snapshot.Steps {
			if snapshot.Steps[i].ID == stepID {
				fn(snapshot, &snapshot.Steps[i])
				return
			}
		}
		sb.logger.Warn("status update for unknown step",
			slog.String("operation_id", operationID),
			slog.String("step", stepID))
	})
}

// CompleteOperation marks a run as completed
func (sb *StatusBroadcaster) CompleteOperation(operationID, message string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = events.StatusCompleted
		snapshot.CurrentStep = ""
		snapshot.Message = message
	})
}

// FailOperation marks a run as failed
func (sb *StatusBroadcaster) FailOperation(operationID string, err error) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = events.StatusFailed
		snapshot.Error = err.Error()
		snapshot.CurrentStep = ""
	})
}

// CancelOperation marks a run as cancelled
func (sb *StatusBroadcaster) CancelOperation(operationID string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = events.StatusCancelled
		snapshot.CurrentStep = ""
		snapshot.Message = "Operation cancelled"
	})
}

// GetSnapshot returns a copy of the current snapshot for a run
func (sb *StatusBroadcaster) GetSnapshot(operationID string) (*OperationSnapshot, bool) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshot, exists := sb.operations[operationID]
	if !exists {
		return nil, false
	}
	return copySnapshot(snapshot), true
}

// GetAllSnapshots returns copies of all snapshots, newest first
func (sb *StatusBroadcaster) GetAllSnapshots() []*OperationSnapshot {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshots := make([]*OperationSnapshot, 0, len(sb.operations))
	for _, snapshot := range sb.operations {
		snapshots = append(snapshots, copySnapshot(snapshot))
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].StartedAt.After(snapshots[j].StartedAt)
	})
	return snapshots
}

// CleanupOldOperations drops finished runs older than maxAge
func (sb *StatusBroadcaster) CleanupOldOperations(ctx context.Context, maxAge time.Duration) int {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	removed := 0
	now := sb.now()
	for id, snapshot := range sb.operations {
		if snapshot.CompletedAt != nil && now.Sub(*snapshot.CompletedAt) > maxAge {
			delete(sb.operations, id)
			removed++
			sb.logger.DebugContext(ctx, "cleaned up old operation",
				slog.String("operation_id", id),
				slog.String("status", snapshot.Status))
		}
	}
	return removed
}

func copySnapshot(s *OperationSnapshot) *OperationSnapshot {
	c := *s
	c.Steps = make([]StepSnapshot, len(s.Steps))
	copy(c.Steps, s.Steps)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
