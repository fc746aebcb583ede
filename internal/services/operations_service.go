package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	apierrors "zomatoclean/internal/errors"
	"zomatoclean/internal/infrastructure"
	"zomatoclean/internal/operations"
	"zomatoclean/internal/validation"
	api "zomatoclean/pkg/contracts/api/v1"
	"zomatoclean/pkg/contracts/domain"
	"zomatoclean/pkg/contracts/events"
)

const defaultPageSize = 20

// RunDetails is what GET /api/runs/{id} returns
type RunDetails struct {
	Summary  *domain.PipelineSummary   `json:"summary"`
	Snapshot *events.OperationSnapshot `json:"snapshot,omitempty"`
}

// RunPage is one page of run summaries, newest first
type RunPage struct {
	Runs     []*domain.PipelineSummary `json:"runs"`
	Total    int                       `json:"total"`
	Page     int                       `json:"page"`
	PageSize int                       `json:"page_size"`
}

// OperationService starts pipeline runs in the background and answers
// queries about them. At most one run is active at a time.
type OperationService struct {
	manager    *operations.Manager
	logger     *slog.Logger
	runTimeout time.Duration
	inputRoot  string
	outputRoot string

	mu      sync.Mutex
	active  string
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewOperationService wraps manager
func NewOperationService(manager *operations.Manager, logger *slog.Logger) *OperationService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &OperationService{
		manager: manager,
		logger:  infrastructure.WithComponent(logger, "operation_service"),
		cancels: make(map[string]context.CancelFunc),
	}
}

// SetRunTimeout bounds every background run. Zero leaves runs unbounded.
func (s *OperationService) SetRunTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runTimeout = d
}

// ConfinePaths restricts request paths to the given directories. Without
// it any path the process can reach is accepted.
func (s *OperationService) ConfinePaths(inputRoot, outputRoot string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputRoot = inputRoot
	s.outputRoot = outputRoot
}

func (s *OperationService) confine(req api.RunStartRequest) (api.RunStartRequest, error) {
	s.mu.Lock()
	inputRoot, outputRoot := s.inputRoot, s.outputRoot
	s.mu.Unlock()

	var err error
	if inputRoot != "" {
		if req.InputPath, err = validation.ConfinePath(inputRoot, req.InputPath, "input_path"); err != nil {
			return req, err
		}
	}
	if outputRoot != "" {
		if req.OutputDir, err = validation.ConfinePath(outputRoot, req.OutputDir, "output_dir"); err != nil {
			return req, err
		}
	}
	return req, nil
}

// StartRun launches a run and returns its ID without waiting for it. The
// run is detached from ctx except for its trace ID.
func (s *OperationService) StartRun(ctx context.Context, req api.RunStartRequest) (string, error) {
	req, err := s.confine(req)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.active != "" || s.manager.IsRunning() {
		active := s.active
		s.mu.Unlock()
		return "", apierrors.NewConflictError("a pipeline run is already in progress").
			WithContext("active_run_id", active)
	}

	runID := uuid.New().String()
	base := infrastructure.WithTraceID(context.Background(), infrastructure.GetTraceID(ctx))
	var runCtx context.Context
	var cancel context.CancelFunc
	if s.runTimeout > 0 {
		runCtx, cancel = context.WithTimeout(base, s.runTimeout)
	} else {
		runCtx, cancel = context.WithCancel(base)
	}
	s.active = runID
	s.cancels[runID] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "starting pipeline run",
		slog.String("run_id", runID),
		slog.String("input_path", req.InputPath),
		slog.String("output_dir", req.OutputDir))

	go func() {
		defer s.wg.Done()
		defer s.release(runID)

		_, err := s.manager.Execute(runCtx, operations.OperationRequest{
			ID:        runID,
			InputPath: req.InputPath,
			OutputDir: req.OutputDir,
		})
		if err != nil {
			s.logger.ErrorContext(runCtx, "pipeline run failed",
				slog.String("run_id", runID),
				slog.String("error", err.Error()))
		}
	}()

	return runID, nil
}

func (s *OperationService) release(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[runID]; ok {
		cancel()
		delete(s.cancels, runID)
	}
	if s.active == runID {
		s.active = ""
	}
}

// ExecuteRun runs the pipeline and waits for it to finish
func (s *OperationService) ExecuteRun(ctx context.Context, req api.RunStartRequest) (*operations.OperationResponse, error) {
	req, err := s.confine(req)
	if err != nil {
		return nil, err
	}
	resp, err := s.manager.Execute(ctx, operations.OperationRequest{
		InputPath: req.InputPath,
		OutputDir: req.OutputDir,
	})
	if errors.Is(err, operations.ErrOperationRunning) {
		return nil, apierrors.NewConflictError("a pipeline run is already in progress")
	}
	return resp, err
}

// CancelRun asks an active run to stop. Steps already running finish first.
func (s *OperationService) CancelRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	cancel, ok := s.cancels[runID]
	s.mu.Unlock()

	if !ok {
		if _, err := s.manager.GetOperation(runID); err != nil {
			return apierrors.NewNotFoundError("run " + runID)
		}
		return apierrors.NewConflictError("run is not active")
	}

	s.logger.InfoContext(ctx, "cancelling pipeline run", slog.String("run_id", runID))
	cancel()
	return nil
}

// GetRun returns the summary and latest snapshot of a run
func (s *OperationService) GetRun(ctx context.Context, runID string) (*RunDetails, error) {
	state, err := s.manager.GetOperation(runID)
	if err != nil {
		return nil, apierrors.NewNotFoundError("run " + runID)
	}

	details := &RunDetails{Summary: state.Summary()}
	if snapshot, ok := s.manager.GetBroadcaster().GetSnapshot(runID); ok {
		details.Snapshot = snapshot
	}
	return details, nil
}

// ListRuns returns a page of run summaries filtered by status
func (s *OperationService) ListRuns(ctx context.Context, req api.RunListRequest) RunPage {
	all := s.manager.ListOperations()

	filtered := all[:0:0]
	for _, summary := range all {
		if req.Status == "" || string(summary.Status) == req.Status {
			filtered = append(filtered, summary)
		}
	}

	page, size := req.Page, req.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}

	// compare before multiplying so large pages cannot overflow
	pages := 0
	if len(filtered) > 0 {
		pages = (len(filtered)-1)/size + 1
	}
	start := len(filtered)
	if page-1 < pages {
		start = (page - 1) * size
	}
	end := len(filtered)
	if end-start > size {
		end = start + size
	}

	return RunPage{
		Runs:     filtered[start:end],
		Total:    len(filtered),
		Page:     page,
		PageSize: size,
	}
}

// ActiveRun returns the ID of the run in progress, or ""
func (s *OperationService) ActiveRun() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Snapshots returns the latest snapshot of every known run
func (s *OperationService) Snapshots() []*events.OperationSnapshot {
	return s.manager.GetBroadcaster().GetAllSnapshots()
}

// Shutdown cancels the active run and waits for it to stop or for ctx to end
func (s *OperationService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
