package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"zomatoclean/internal/config"
	"zomatoclean/internal/infrastructure"
	"zomatoclean/internal/operations"
	"zomatoclean/internal/validation"
	"zomatoclean/pkg/contracts"
)

// Health states
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
)

// HubStatus is the part of the websocket hub the health checks read
type HubStatus interface {
	ClientCount() int
	Stats() map[string]interface{}
}

// HealthService provides health check functionality
type HealthService struct {
	paths     *config.Paths
	manager   *operations.Manager
	runs      *OperationService
	hub       HubStatus
	files     *validation.FileValidator
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. hub and runs may be nil.
func NewHealthService(paths *config.Paths, manager *operations.Manager, runs *OperationService, hub HubStatus, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = infrastructure.WithComponent(logger, "health_service")
	return &HealthService{
		paths:     paths,
		manager:   manager,
		runs:      runs,
		hub:       hub,
		files:     validation.NewFileValidator(logger),
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now().UTC(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck reports whether every dependency can serve a run
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now().UTC(),
		Version:   contracts.Version,
		Services: map[string]ServiceHealth{
			"pipeline":  hs.checkPipeline(),
			"storage":   hs.checkStorage(),
			"websocket": hs.checkWebSocket(),
		},
	}

	for name, svc := range status.Services {
		if svc.Status != StatusReady {
			status.Status = StatusNotReady
			hs.logger.WarnContext(ctx, "readiness check failed",
				slog.String("service", name),
				slog.String("message", svc.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	rt := map[string]interface{}{
		"uptime_seconds": time.Since(hs.startTime).Seconds(),
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
	}
	if hs.hub != nil {
		rt["websocket_clients"] = hs.hub.ClientCount()
	}
	if hs.runs != nil {
		rt["active_run"] = hs.runs.ActiveRun()
	}
	return HealthStatus{
		Status:    StatusAlive,
		Timestamp: time.Now().UTC(),
		Version:   contracts.Version,
		Runtime:   rt,
	}
}

// Version returns build information
func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}

func (hs *HealthService) checkPipeline() ServiceHealth {
	if hs.manager == nil || hs.manager.GetRegistry().Count() == 0 {
		return ServiceHealth{Status: StatusNotReady, Message: "no pipeline steps registered"}
	}
	if err := hs.manager.GetRegistry().ValidateDependencies(); err != nil {
		return ServiceHealth{Status: StatusNotReady, Message: err.Error()}
	}
	return ServiceHealth{Status: StatusReady}
}

func (hs *HealthService) checkStorage() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "paths not configured"}
	}
	for _, dir := range []string{hs.paths.RawDir, hs.paths.ProcessedDir} {
		if err := hs.files.ValidateOutputDirectory(dir); err != nil {
			return ServiceHealth{Status: StatusNotReady, Message: err.Error()}
		}
	}
	return ServiceHealth{Status: StatusReady}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "websocket hub not configured"}
	}
	if running, _ := hs.hub.Stats()["running"].(bool); !running {
		return ServiceHealth{Status: StatusNotReady, Message: "websocket hub not running"}
	}
	return ServiceHealth{Status: StatusReady}
}
