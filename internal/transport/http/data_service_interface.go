package http

import (
	"context"
	"net/http"

	"zomatoclean/internal/services"
	"zomatoclean/pkg/contracts/domain"
)

// DataServiceInterface defines the interface for data service operations
type DataServiceInterface interface {
	ListOutputs(ctx context.Context) ([]services.OutputFile, error)
	LatestReport(ctx context.Context) (*domain.QualityReport, error)
	ServeOutput(w http.ResponseWriter, r *http.Request, name string) error
}
