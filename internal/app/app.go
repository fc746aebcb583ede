package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"zomatoclean/internal/config"
	apierrors "zomatoclean/internal/errors"
	"zomatoclean/internal/infrastructure"
	customMiddleware "zomatoclean/internal/middleware"
	"zomatoclean/internal/operations"
	"zomatoclean/internal/services"
	handlers "zomatoclean/internal/transport/http"
	ws "zomatoclean/internal/websocket"
	"zomatoclean/pkg/contracts"
)

// AppName is logged at startup
const AppName = "Zomato Cleaning Service"

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Paths            *config.Paths
	Router           *chi.Mux
	Server           *http.Server
	WebSocketHub     *ws.Hub
	Manager          *operations.Manager
	OperationService *services.OperationService
	DataService      *services.DataService
	HealthService    *services.HealthService
	ErrorHandler     *apierrors.ErrorHandler
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	Tracer           *operations.OperationTracer
}

// NewApplication loads configuration from configFile and the environment
// and builds the application
func NewApplication(configFile string) (*Application, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires every component from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(cfg.Metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	tracer, err := operations.NewOperationTracer(otelProviders)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize operation tracer: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Tracer:        tracer,
		ErrorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the hub, the pipeline and the services on top
func (a *Application) initializeServices() error {
	wsMetrics, err := ws.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to initialize websocket metrics: %w", err)
	}
	hub := ws.NewHub(a.Logger, wsMetrics)
	a.WebSocketHub = hub

	registry := operations.NewRegistry()
	steps := operations.NewPipelineStages(a.Config, a.Paths, a.Logger)
	if err := operations.RegisterPipeline(registry, steps); err != nil {
		return fmt.Errorf("failed to register pipeline: %w", err)
	}
	a.Manager = operations.NewManager(hub, registry, operations.NewConfig(), a.Tracer, a.Logger)

	a.OperationService = services.NewOperationService(a.Manager, a.Logger)
	a.OperationService.SetRunTimeout(a.Config.Server.RunTimeout)
	a.OperationService.ConfinePaths(a.Paths.RawDir, a.Paths.ProcessedDir)
	hub.SetSnapshotSource(a.OperationService.Snapshots)

	a.DataService = services.NewDataService(a.Paths, a.Logger)
	a.HealthService = services.NewHealthService(a.Paths, a.Manager, a.OperationService, hub, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	// minimal middleware only: the upgrade needs the raw ResponseWriter
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.HandleFunc("/ws", a.handleWebSocket)
	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders))

	r.Group(func(r chi.Router) {
		// order: RequestID, RealIP, OTel, Logger, Recoverer, Timeout
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Tracer.Metrics()).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.getCORSConfig()))
		if a.Config.Server.RateLimitRPS > 0 {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Server.RateLimitRPS,
				a.Config.Server.RateLimitBurst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	validator := customMiddleware.NewRequestValidator(a.Logger, a.ErrorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		runsHandler := handlers.NewRunsHandler(a.OperationService, validator, a.ErrorHandler, a.Logger)
		r.Route("/runs", func(r chi.Router) {
			r.Use(customMiddleware.ContentTypeValidator(a.ErrorHandler, "application/json"))
			r.Mount("/", runsHandler.Routes())
		})

		outputsHandler := handlers.NewOutputsHandler(a.DataService, a.ErrorHandler, a.Logger)
		r.Get("/outputs", outputsHandler.ListOutputs)
		r.With(customMiddleware.Compress(5)).Get("/outputs/{name}", outputsHandler.DownloadOutput)
		r.Get("/reports/latest", outputsHandler.LatestReport)
	})
}

// getCORSConfig builds the CORS policy from the server configuration
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"Traceparent",
		},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the hub and the HTTP server. A listener failure calls cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.WebSocketHub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if err := a.OperationService.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Active run did not stop in time", slog.String("error", err.Error()))
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

// handleWebSocket upgrades the connection and hands it to the hub
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	reqID := customMiddleware.GetRequestID(r.Context())
	ctx := infrastructure.WithTraceID(r.Context(), reqID)
	a.Logger.InfoContext(ctx, "WebSocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")),
		slog.String("user_agent", r.UserAgent()))

	corsConfig := a.getCORSConfig()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// same-origin and non-browser clients send no Origin
			if origin == "" || corsConfig.OriginAllowed(origin) {
				return true
			}
			a.Logger.WarnContext(ctx, "WebSocket origin not allowed",
				slog.String("origin", origin),
				slog.Any("allowed_origins", corsConfig.AllowedOrigins))
			return false
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.ErrorContext(ctx, "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
			http.Error(w, http.StatusText(status), status)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := ws.ServeWS(a.WebSocketHub, ws.NewConnectionWrapper(conn), reqID, a.Logger)
	a.Logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))
}

// performStartupHealthCheck verifies the data directories are writable
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var (
		mu       sync.Mutex
		warnings []string
	)

	directories := map[string]string{
		"Raw":       a.Paths.RawDir,
		"Processed": a.Paths.ProcessedDir,
		"Logs":      a.Paths.LogsDir,
	}
	g, _ := errgroup.WithContext(ctx)
	for name, dir := range directories {
		g.Go(func() error {
			testFile := filepath.Join(dir, ".write_test")
			if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
				mu.Unlock()
				return nil
			}
			return os.Remove(testFile)
		})
	}
	if err := g.Wait(); err != nil {
		warnings = append(warnings, err.Error())
	}

	if ready := a.HealthService.ReadinessCheck(ctx); ready.Status != services.StatusReady {
		for name, svc := range ready.Services {
			// the hub may still be starting
			if svc.Status != services.StatusReady && name != "websocket" {
				warnings = append(warnings, fmt.Sprintf("%s: %s", name, svc.Message))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
