package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"zomatoclean/internal/infrastructure"
	"zomatoclean/pkg/contracts/domain"
)

// Manager orchestrates pipeline runs. Runs never overlap: Execute refuses
// to start while another run is active.
type Manager struct {
	registry    *Registry
	config      *Config
	broadcaster *StatusBroadcaster
	tracer      *OperationTracer
	logger      *slog.Logger

	mu         sync.RWMutex
	active     string
	operations map[string]*OperationState
}

// NewManager creates a new operation manager. hub and tracer may be nil.
func NewManager(hub WebSocketHub, registry *Registry, config *Config, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	logger = infrastructure.WithComponent(logger, "operations")

	return &Manager{
		registry:    registry,
		config:      config,
		broadcaster: NewStatusBroadcaster(hub, logger),
		tracer:      tracer,
		logger:      logger,
		operations:  make(map[string]*OperationState),
	}
}

// RegisterStage registers a step with the manager
func (m *Manager) RegisterStage(step Step) error {
	return m.registry.Register(step)
}

// GetRegistry returns the step registry
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// GetBroadcaster returns the status broadcaster
func (m *Manager) GetBroadcaster() *StatusBroadcaster {
	return m.broadcaster
}

// IsRunning reports whether a run is in progress
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active != ""
}

// Execute runs every registered step in dependency order. The first failing
// step aborts the run and the remaining steps are marked skipped. A failing
// validation report does not fail the run.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	ctx = infrastructure.EnsureTraceID(ctx)

	state := NewOperationState(req.ID)
	if req.InputPath != "" {
		state.SetConfig(ConfigKeyInputPath, req.InputPath)
	}
	if req.OutputDir != "" {
		state.SetConfig(ConfigKeyOutputDir, req.OutputDir)
	}

	if err := m.begin(state); err != nil {
		return nil, err
	}
	defer m.finish()

	logger := m.logger.With(
		slog.String("operation_id", req.ID),
		slog.String("trace_id", infrastructure.GetTraceID(ctx)))

	ctx, span := m.tracer.TraceOperationExecution(ctx, req.ID, req)
	defer span.End()

	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		err = fmt.Errorf("failed to get dependency order: %w", err)
		logger.ErrorContext(ctx, "operation_error", slog.String("error", err.Error()))
		state.Fail(err)
		m.tracer.RecordOperationCompletion(ctx, span, state, err)
		return m.createResponse(state), err
	}

	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}
	m.broadcaster.CreateOperation(req.ID, steps)

	state.Start()
	m.broadcaster.StartOperation(req.ID)
	logger.InfoContext(ctx, "operation_start",
		slog.String("input_path", req.InputPath),
		slog.Int("step_count", len(steps)))

	err = m.executeSequential(ctx, state, steps, logger)
	if err != nil {
		state.Fail(err)
		m.broadcaster.FailOperation(req.ID, err)
		logger.ErrorContext(ctx, "operation_error", slog.String("error", err.Error()))
	} else {
		state.Complete()
		m.broadcaster.CompleteOperation(req.ID, completionMessage(state.Data.Validation))
		logger.InfoContext(ctx, "operation_complete", slog.Duration("duration", state.Duration()))
	}
	m.tracer.RecordOperationCompletion(ctx, span, state, err)

	return m.createResponse(state), err
}

func completionMessage(outcome *domain.ValidationOutcome) string {
	if outcome != nil && !outcome.Valid {
		return fmt.Sprintf("Operation completed; %d validation check(s) failed", len(outcome.FailedChecks))
	}
	return "Operation completed successfully"
}

func (m *Manager) begin(state *OperationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != "" {
		return ErrOperationRunning
	}
	if _, exists := m.operations[state.ID]; exists {
		return fmt.Errorf("operation %s already exists", state.ID)
	}
	m.active = state.ID
	m.operations[state.ID] = state
	return nil
}

func (m *Manager) finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = ""
}

// executeSequential executes steps one by one
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step, logger *slog.Logger) error {
	for i, step := range steps {
		if ctx.Err() != nil {
			err := NewCancellationError(step.ID())
			m.skipRemaining(state, steps[i:], "Operation cancelled")
			return err
		}

		for _, dep := range step.GetDependencies() {
			if depState := state.GetStage(dep); depState == nil || depState.GetStatus() != StepStatusCompleted {
				err := NewDependencyError(step.ID(), dep)
				m.skipRemaining(state, steps[i:], err.Error())
				return err
			}
		}

		logger.InfoContext(ctx, "executing_stage",
			slog.String("step", step.ID()),
			slog.Int("stage_number", i+1),
			slog.Int("total_stages", len(steps)))

		if err := m.executeStage(ctx, state, step, logger); err != nil {
			if m.config.ContinueOnError {
				logger.WarnContext(ctx, "stage_failed_continuing",
					slog.String("step", step.ID()),
					slog.String("error", err.Error()))
				continue
			}
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("Previous step %s failed", step.ID()))
			return err
		}
	}
	return nil
}

// executeStage runs one step under its timeout. Steps are not retried.
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step, logger *slog.Logger) error {
	stepState := state.GetStage(step.ID())

	if err := step.Validate(state); err != nil {
		verr := NewValidationError(step.ID(), err.Error())
		stepState.Fail(verr)
		m.broadcaster.FailStep(state.ID, step.ID(), verr)
		logger.ErrorContext(ctx, "stage_validation_failed",
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		return verr
	}

	timeout := m.config.GetStageTimeout(step.ID())
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stepCtx, span := m.tracer.TraceStepExecution(stepCtx, state.ID, step.ID())
	defer span.End()

	stepState.Start()
	m.broadcaster.StartStep(state.ID, step.ID())
	logger.InfoContext(ctx, "stage_start", slog.String("step", step.ID()))

	started := time.Now()
	err := step.Execute(stepCtx, state)
	duration := time.Since(started)

	if err == nil && errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		err = NewTimeoutError(step.ID(), timeout.String())
	}
	m.tracer.RecordStepCompletion(stepCtx, span, step.ID(), duration, err)

	if err != nil {
		var opErr *OperationError
		if !errors.As(err, &opErr) {
			err = NewExecutionError(step.ID(), err)
		}
		stepState.Fail(err)
		m.broadcaster.FailStep(state.ID, step.ID(), err)
		logger.ErrorContext(ctx, "stage_error",
			slog.String("step", step.ID()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return err
	}

	stepState.Complete(fmt.Sprintf("%s completed", step.Name()))
	summary := stepState.Summary()
	m.broadcaster.CompleteStep(state.ID, step.ID(), summary.Message, summary.Metadata)
	logger.InfoContext(ctx, "stage_complete",
		slog.String("step", step.ID()),
		slog.Duration("duration", duration))
	return nil
}

func (m *Manager) skipRemaining(state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		if s := state.GetStage(step.ID()); s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(reason)
			m.broadcaster.SkipStep(state.ID, step.ID(), reason)
		}
	}
}

// GetOperation returns the state of a run
func (m *Manager) GetOperation(id string) (*OperationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.operations[id]
	if !ok {
		return nil, ErrOperationNotFound
	}
	return state, nil
}

// ListOperations returns the summaries of all known runs, newest first
func (m *Manager) ListOperations() []*domain.PipelineSummary {
	m.mu.RLock()
	states := make([]*OperationState, 0, len(m.operations))
	for _, state := range m.operations {
		states = append(states, state)
	}
	m.mu.RUnlock()

	summaries := make([]*domain.PipelineSummary, len(states))
	for i, state := range states {
		summaries[i] = state.Summary()
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	return summaries
}

func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	resp := &OperationResponse{
		ID:       state.ID,
		Status:   state.GetStatus(),
		Duration: state.Duration(),
		Steps:    make(map[string]StepSummary),
		Summary:  state.Summary(),
	}
	state.mu.RLock()
	for id, s := range state.Steps {
		resp.Steps[id] = s.Summary()
	}
	if state.Error != nil {
		resp.Error = state.Error.Error()
	}
	state.mu.RUnlock()
	return resp
}
