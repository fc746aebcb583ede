package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "zomatoclean/internal/errors"
)

// OutputsHandler serves the cleaned tables and quality reports on disk
type OutputsHandler struct {
	service DataServiceInterface
	errors  *apierrors.ErrorHandler
	logger  *slog.Logger
}

// NewOutputsHandler creates a new outputs handler
func NewOutputsHandler(service DataServiceInterface, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *OutputsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &OutputsHandler{
		service: service,
		errors:  errorHandler,
		logger:  logger.With(slog.String("handler", "outputs")),
	}
}

// ListOutputs handles GET /api/outputs
func (h *OutputsHandler) ListOutputs(w http.ResponseWriter, r *http.Request) {
	outputs, err := h.service.ListOutputs(r.Context())
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"outputs": outputs,
		"count":   len(outputs),
	})
}

// LatestReport handles GET /api/reports/latest
func (h *OutputsHandler) LatestReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.LatestReport(r.Context())
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// DownloadOutput handles GET /api/outputs/{name}
func (h *OutputsHandler) DownloadOutput(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.service.ServeOutput(w, r, name); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	h.logger.DebugContext(r.Context(), "output served", slog.String("name", name))
}
