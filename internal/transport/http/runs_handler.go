package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/attribute"

	apierrors "zomatoclean/internal/errors"
	"zomatoclean/internal/infrastructure"
	"zomatoclean/internal/middleware"
	api "zomatoclean/pkg/contracts/api/v1"
)

// RunsHandler handles pipeline run requests
type RunsHandler struct {
	service   RunServiceInterface
	validator *middleware.RequestValidator
	errors    *apierrors.ErrorHandler
	logger    *slog.Logger
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(service RunServiceInterface, validator *middleware.RequestValidator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *RunsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	if validator == nil {
		validator = middleware.NewRequestValidator(logger, errorHandler)
	}
	return &RunsHandler{
		service:   service,
		validator: validator,
		errors:    errorHandler,
		logger:    logger.With(slog.String("handler", "runs")),
	}
}

// Routes returns a chi router for the run endpoints
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.StartRun)
	r.Get("/", h.ListRuns)
	r.Get("/{id}", h.GetRun)
	r.Post("/{id}/cancel", h.CancelRun)
	return r
}

// StartRun handles POST /api/runs. The run continues after the response.
func (h *RunsHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	ctx, span := infrastructure.StartSpan(r.Context(), nil, "runs_handler.start_run")
	defer span.End()

	var req api.RunStartRequest
	if !h.validator.DecodeAndValidate(w, r, &req) {
		return
	}

	runID, err := h.service.StartRun(ctx, req)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		h.errors.HandleError(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("run.id", runID))

	h.logger.InfoContext(ctx, "run accepted",
		slog.String("run_id", runID),
		slog.String("request_id", middleware.GetRequestID(ctx)))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"run_id":   runID,
		"status":   "accepted",
		"poll_url": "/api/runs/" + runID,
	})
}

// ListRuns handles GET /api/runs?page=&page_size=&status=
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	req, fieldErrs := parseListRequest(r)
	if len(fieldErrs) == 0 {
		fieldErrs = h.validator.Struct(req)
	}
	if len(fieldErrs) > 0 {
		h.errors.HandleValidation(w, r, fieldErrs)
		return
	}

	render.JSON(w, r, h.service.ListRuns(r.Context(), req))
}

func parseListRequest(r *http.Request) (api.RunListRequest, []apierrors.ValidationError) {
	q := r.URL.Query()
	req := api.RunListRequest{Status: q.Get("status")}

	var errs []apierrors.ValidationError
	parse := func(field string, dst *int) {
		raw := q.Get(field)
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, apierrors.ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%s must be an integer", field),
			})
			return
		}
		*dst = n
	}
	parse("page", &req.Page)
	parse("page_size", &req.PageSize)
	return req, errs
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, details)
}

// CancelRun handles POST /api/runs/{id}/cancel
func (h *RunsHandler) CancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	if err := h.service.CancelRun(r.Context(), runID); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"run_id": runID,
		"status": "cancelling",
	})
}
