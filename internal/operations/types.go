package operations

import (
	"time"

	"zomatoclean/pkg/contracts/domain"
)

// Pipeline step identifiers
const (
	StepIDLoad     = "load"
	StepIDClean    = "clean"
	StepIDFeatures = "features"
	StepIDQuality  = "quality"
	StepIDPersist  = "persist"
)

// Pipeline step names
const (
	StepNameLoad     = "Data Loading"
	StepNameClean    = "Data Cleaning"
	StepNameFeatures = "Feature Engineering"
	StepNameQuality  = "Quality Assessment"
	StepNamePersist  = "Output Persistence"
)

// Config keys carried from the request into the operation state
const (
	ConfigKeyInputPath = "input_path"
	ConfigKeyOutputDir = "output_dir"
)

// WebSocket event types
const (
	EventTypeOperationSnapshot = "operation:snapshot"
	EventTypeOperationStatus   = "operation:status"
)

// Default timeouts
const (
	DefaultStepTimeout     = 10 * time.Minute
	DefaultLoadTimeout     = 15 * time.Minute
	DefaultPersistTimeout  = 5 * time.Minute
	DefaultQualityTimeout  = 2 * time.Minute
	DefaultFeatureTimeout  = 5 * time.Minute
	DefaultCleaningTimeout = 10 * time.Minute
)

// OperationRequest describes one pipeline run
type OperationRequest struct {
	ID string `json:"id,omitempty"`
	// InputPath is an explicit source file. Empty means acquire or discover one.
	InputPath string `json:"input_path,omitempty"`
	// OutputDir overrides the processed data directory for this run
	OutputDir string `json:"output_dir,omitempty"`
}

// OperationResponse is returned by Manager.Execute
type OperationResponse struct {
	ID       string                    `json:"id"`
	Status   OperationStatus           `json:"status"`
	Duration time.Duration             `json:"duration"`
	Steps    map[string]StepSummary    `json:"steps"`
	Summary  *domain.PipelineSummary   `json:"summary,omitempty"`
	Error    string                    `json:"error,omitempty"`
	Metadata map[string]interface{}    `json:"metadata,omitempty"`
}

// StepSummary is the externally visible outcome of one step
type StepSummary struct {
	Name     string                 `json:"name"`
	Status   StepStatus             `json:"status"`
	Duration time.Duration          `json:"duration"`
	Message  string                 `json:"message,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
