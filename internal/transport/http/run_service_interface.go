package http

import (
	"context"

	"zomatoclean/internal/services"
	api "zomatoclean/pkg/contracts/api/v1"
)

// RunServiceInterface is the part of the run service the handlers call
type RunServiceInterface interface {
	StartRun(ctx context.Context, req api.RunStartRequest) (string, error)
	CancelRun(ctx context.Context, runID string) error
	GetRun(ctx context.Context, runID string) (*services.RunDetails, error)
	ListRuns(ctx context.Context, req api.RunListRequest) services.RunPage
}
