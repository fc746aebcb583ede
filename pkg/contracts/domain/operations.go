package domain

import "time"

// RunStatus is the lifecycle state of a pipeline run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunOutputs lists the artifacts written by a run
type RunOutputs struct {
	CleanedDataPath string `json:"cleaned_data_path"`
	ReportPath      string `json:"report_path"`
}

// PipelineSummary is the user-facing result of one run
type PipelineSummary struct {
	RunID          string             `json:"run_id"`
	Status         RunStatus          `json:"status"`
	SourcePath     string             `json:"source_path,omitempty"`
	OriginalShape  Shape              `json:"original_shape"`
	CleanedShape   Shape              `json:"cleaned_shape"`
	QualityMetrics QualityMetrics     `json:"quality_metrics"`
	CleaningImpact CleaningImpact     `json:"cleaning_impact"`
	Validation     *ValidationOutcome `json:"validation,omitempty"`
	Outputs        RunOutputs         `json:"outputs"`
	StartedAt      time.Time          `json:"started_at"`
	CompletedAt    time.Time          `json:"completed_at"`
	Error          string             `json:"error,omitempty"`
}
