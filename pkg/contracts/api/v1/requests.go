// Package api contains the HTTP request contracts of the run API.
// Version v1 represents the current stable API version.
package api

// PaginationRequest represents common pagination parameters
type PaginationRequest struct {
	Page     int `json:"page" query:"page" validate:"omitempty,min=1,max=1000000"`
	PageSize int `json:"page_size" query:"page_size" validate:"omitempty,min=1,max=100"`
}

// RunStartRequest asks the server to run the pipeline once
type RunStartRequest struct {
	// InputPath is an explicit source file inside the raw data directory;
	// empty means acquire or discover one
	InputPath string `json:"input_path,omitempty" validate:"omitempty,max=4096"`
	// OutputDir is a directory inside the processed data directory for this run
	OutputDir string `json:"output_dir,omitempty" validate:"omitempty,max=4096"`
}

// RunGetRequest addresses a single run
type RunGetRequest struct {
	RunID string `json:"run_id" param:"id" validate:"required,uuid"`
}

// RunListRequest lists past runs, newest first
type RunListRequest struct {
	PaginationRequest
	Status string `json:"status,omitempty" query:"status" validate:"omitempty,oneof=pending running completed failed"`
}
