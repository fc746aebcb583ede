package operations_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "zomatoclean/internal/errors"
	"zomatoclean/internal/operations"
	"zomatoclean/internal/operations/testutil"
	sharedtest "zomatoclean/internal/shared/testutil"
	"zomatoclean/pkg/contracts/domain"
	"zomatoclean/pkg/contracts/events"
)

func newManager(t *testing.T, hub operations.WebSocketHub, steps ...operations.Step) *operations.Manager {
	t.Helper()
	return operations.NewManager(hub, testutil.CreateTestRegistry(steps...), operations.NewConfig(), nil, nil)
}

func TestManagerExecuteRunsStepsInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(id string) *testutil.MockStage {
		s := testutil.CreateSuccessfulStage(id, id)
		s.ExecuteFunc = func(context.Context, *operations.OperationState) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, id)
			return nil
		}
		return s
	}
	clean := record(operations.StepIDClean)
	clean.DependenciesValue = []string{operations.StepIDLoad}
	hub := &testutil.MockWebSocketHub{}

	m := newManager(t, hub, clean, record(operations.StepIDLoad))
	resp, err := m.Execute(context.Background(), operations.OperationRequest{InputPath: "in.csv"})

	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)
	assert.Equal(t, []string{operations.StepIDLoad, operations.StepIDClean}, order)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, domain.RunStatusCompleted, resp.Summary.Status)
	for _, s := range resp.Steps {
		assert.Equal(t, operations.StepStatusCompleted, s.Status)
	}

	snap, ok := hub.LastSnapshot()
	require.True(t, ok)
	assert.Equal(t, events.StatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.Progress)
	assert.False(t, m.IsRunning())
}

func TestManagerExecuteAbortsOnFirstFailure(t *testing.T) {
	cause := apperrors.NewDataUnavailableError("no source", nil)
	load := testutil.CreateFailingStage(operations.StepIDLoad, "load", cause)
	clean := testutil.CreateSuccessfulStage(operations.StepIDClean, "clean", operations.StepIDLoad)
	persist := testutil.CreateSuccessfulStage(operations.StepIDPersist, "persist", operations.StepIDClean)

	resp, err := newManager(t, nil, load, clean, persist).Execute(context.Background(), operations.OperationRequest{})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeDataUnavailable), "cause must stay reachable")
	assert.Equal(t, operations.ErrorTypeExecution, operations.GetErrorType(err))
	assert.Equal(t, operations.OperationStatusFailed, resp.Status)
	assert.Equal(t, domain.RunStatusFailed, resp.Summary.Status)
	assert.NotEmpty(t, resp.Summary.Error)

	assert.Equal(t, operations.StepStatusFailed, resp.Steps[operations.StepIDLoad].Status)
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps[operations.StepIDClean].Status)
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps[operations.StepIDPersist].Status)
	assert.Zero(t, clean.GetExecuteCalls())
	assert.Zero(t, persist.GetExecuteCalls())
}

func TestManagerExecuteValidationFailure(t *testing.T) {
	bad := testutil.CreateValidationFailingStage("a", "a", errors.New("no input"))

	resp, err := newManager(t, nil, bad).Execute(context.Background(), operations.OperationRequest{})

	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeValidation, operations.GetErrorType(err))
	assert.Zero(t, bad.GetExecuteCalls())
	assert.Equal(t, operations.StepStatusFailed, resp.Steps["a"].Status)
}

func TestManagerExecuteTimeout(t *testing.T) {
	cfg := operations.NewConfig()
	cfg.SetStageTimeout("slow", 20*time.Millisecond)
	m := operations.NewManager(nil, testutil.CreateTestRegistry(testutil.CreateSlowStage("slow", "slow", time.Minute)), cfg, nil, nil)

	_, err := m.Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeTimeout, operations.GetErrorType(err))
}

func TestManagerExecuteCancelledContext(t *testing.T) {
	a := testutil.CreateSuccessfulStage("a", "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := newManager(t, nil, a).Execute(ctx, operations.OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeCancellation, operations.GetErrorType(err))
	assert.Equal(t, operations.StepStatusSkipped, resp.Steps["a"].Status)
}

func TestManagerRejectsOverlappingRuns(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	blocking := testutil.CreateSuccessfulStage("block", "block")
	blocking.ExecuteFunc = func(context.Context, *operations.OperationState) error {
		close(started)
		<-release
		return nil
	}
	m := newManager(t, nil, blocking)

	done := make(chan error, 1)
	go func() {
		_, err := m.Execute(context.Background(), operations.OperationRequest{ID: "first"})
		done <- err
	}()
	<-started

	assert.True(t, m.IsRunning())
	_, err := m.Execute(context.Background(), operations.OperationRequest{ID: "second"})
	assert.ErrorIs(t, err, operations.ErrOperationRunning)

	close(release)
	require.NoError(t, <-done)

	_, err = m.Execute(context.Background(), operations.OperationRequest{ID: "first"})
	assert.Error(t, err, "run ids are unique")

	_, err = m.Execute(context.Background(), operations.OperationRequest{ID: "third"})
	require.NoError(t, err)

	runs := m.ListOperations()
	require.Len(t, runs, 2)
	assert.Equal(t, "third", runs[0].RunID)

	_, err = m.GetOperation("second")
	assert.ErrorIs(t, err, operations.ErrOperationNotFound)
}

func TestManagerLogsRunEvents(t *testing.T) {
	logger, capture := sharedtest.NewLogCapture()
	load := testutil.CreateSuccessfulStage(operations.StepIDLoad, "load")
	clean := testutil.CreateFailingStage(operations.StepIDClean, "clean", errors.New("boom"), operations.StepIDLoad)
	m := operations.NewManager(nil, testutil.CreateTestRegistry(load, clean), operations.NewConfig(), nil, logger)

	_, err := m.Execute(context.Background(), operations.OperationRequest{ID: "run-42", InputPath: "in.csv"})
	require.Error(t, err)

	start := sharedtest.AssertLogged(t, capture, slog.LevelInfo, "operation_start")
	assert.Equal(t, "run-42", start.Attrs["operation_id"])
	assert.Equal(t, "in.csv", start.Attrs["input_path"])
	assert.NotEmpty(t, start.Attrs["trace_id"])

	stageErr := sharedtest.AssertLogged(t, capture, slog.LevelError, "stage_error")
	assert.Equal(t, operations.StepIDClean, stageErr.Attrs["step"])
	sharedtest.AssertLogged(t, capture, slog.LevelError, "operation_error")
}
