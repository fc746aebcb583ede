package http

import (
	"net/http"

	"github.com/go-chi/render"

	"zomatoclean/internal/infrastructure"
)

// MetricsHandler exposes the Prometheus scrape endpoint
type MetricsHandler struct {
	scrape http.Handler
}

// NewMetricsHandler wraps the exporter handler of providers. The endpoint
// answers 404 when the prometheus exporter is not configured.
func NewMetricsHandler(providers *infrastructure.OTelProviders) *MetricsHandler {
	h := &MetricsHandler{}
	if providers != nil {
		h.scrape = providers.PrometheusHTTP
	}
	return h
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.scrape == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{
			"status": "disabled",
			"detail": "metric exporter is not prometheus",
		})
		return
	}
	h.scrape.ServeHTTP(w, r)
}
