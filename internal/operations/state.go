package operations

import (
	"sync"
	"time"

	"zomatoclean/internal/dataprocessing"
	"zomatoclean/pkg/contracts/domain"
)

// OperationStatus represents the overall operation status
type OperationStatus string

const (
	OperationStatusPending   OperationStatus = "pending"
	OperationStatusRunning   OperationStatus = "running"
	OperationStatusCompleted OperationStatus = "completed"
	OperationStatusFailed    OperationStatus = "failed"
	OperationStatusCancelled OperationStatus = "cancelled"
)

// PipelineData is the working set handed from one step to the next
type PipelineData struct {
	SourcePath string
	SourceInfo domain.DataInfo

	Original *domain.Table
	Cleaned  *domain.Table
	Final    *domain.Table

	CleaningReport dataprocessing.StepReport
	FeatureReport  dataprocessing.StepReport

	Quality    *domain.QualityReport
	Validation *domain.ValidationOutcome
	Outputs    domain.RunOutputs
}

// OperationState represents the complete state of one pipeline run
type OperationState struct {
	mu sync.RWMutex

	ID        string          `json:"id"`
	Status    OperationStatus `json:"status"`
	StartTime time.Time       `json:"start_time"`
	EndTime   *time.Time      `json:"end_time,omitempty"`

	Steps map[string]*StepState `json:"steps"`

	// Config holds request parameters
	Config map[string]interface{} `json:"config"`

	Data *PipelineData `json:"-"`

	Error error `json:"-"`
}

// NewOperationState creates a new operation state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Config:    make(map[string]interface{}),
		Data:      &PipelineData{},
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the operation as completed
func (p *OperationState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// Cancel marks the operation as cancelled
func (p *OperationState) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCancelled
}

// GetStatus returns the current status
func (p *OperationState) GetStatus() OperationStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// GetStage returns the state of a specific step
func (p *OperationState) GetStage(stepID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stepID]
}

// SetStage updates the state of a specific step
func (p *OperationState) SetStage(stepID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Steps[stepID] = state
}

// GetConfig retrieves a request parameter
func (p *OperationState) GetConfig(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Config[key]
	return val, ok
}

// GetConfigString retrieves a string request parameter, or "" when unset
func (p *OperationState) GetConfigString(key string) string {
	val, ok := p.GetConfig(key)
	if !ok {
		return ""
	}
	s, _ := val.(string)
	return s
}

// SetConfig sets a request parameter
func (p *OperationState) SetConfig(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Config[key] = value
}

// Duration returns the duration of the operation execution
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// HasFailures returns true if any step has failed
func (p *OperationState) HasFailures() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, step := range p.Steps {
		if step.GetStatus() == StepStatusFailed {
			return true
		}
	}
	return false
}

// Summary builds the user-facing run summary from whatever the run produced
func (p *OperationState) Summary() *domain.PipelineSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	summary := &domain.PipelineSummary{
		RunID:     p.ID,
		Status:    runStatus(p.Status),
		StartedAt: p.StartTime.UTC(),
	}
	if p.EndTime != nil {
		summary.CompletedAt = p.EndTime.UTC()
	}
	if p.Error != nil {
		summary.Error = p.Error.Error()
	}

	data := p.Data
	if data == nil {
		return summary
	}
	summary.SourcePath = data.SourcePath
	summary.Outputs = data.Outputs
	summary.Validation = data.Validation
	if data.Original != nil {
		summary.OriginalShape = data.Original.Shape()
	}
	if data.Final != nil {
		summary.CleanedShape = data.Final.Shape()
	}
	if data.Quality != nil {
		summary.QualityMetrics = data.Quality.Metrics
		summary.CleaningImpact = data.Quality.Impact
	}
	return summary
}

func runStatus(s OperationStatus) domain.RunStatus {
	switch s {
	case OperationStatusRunning:
		return domain.RunStatusRunning
	case OperationStatusCompleted:
		return domain.RunStatusCompleted
	case OperationStatusFailed, OperationStatusCancelled:
		return domain.RunStatusFailed
	default:
		return domain.RunStatusPending
	}
}
