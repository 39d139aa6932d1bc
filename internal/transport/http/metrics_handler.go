package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"petrodash/internal/infrastructure"
	"petrodash/internal/services"
)

// MetricsHandler exposes Prometheus metrics and a JSON runtime summary
type MetricsHandler struct {
	prometheus http.Handler
	clients    services.ClientTracker
	startTime  time.Time
}

// NewMetricsHandler wraps the exporter's handler. Without one the default
// Prometheus registry is served.
func NewMetricsHandler(prometheus http.Handler, clients services.ClientTracker) *MetricsHandler {
	if prometheus == nil {
		prometheus = promhttp.Handler()
	}
	return &MetricsHandler{
		prometheus: prometheus,
		clients:    clients,
		startTime:  time.Now(),
	}
}

// Prometheus handles GET /metrics
func (h *MetricsHandler) Prometheus(w http.ResponseWriter, r *http.Request) {
	h.prometheus.ServeHTTP(w, r)
}

// Summary handles GET /api/metrics
func (h *MetricsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"runtime":   infrastructure.CollectSystemStats(h.startTime).FormatStats(),
	}
	if h.clients != nil {
		response["websocket"] = h.clients.Stats()
	}
	render.JSON(w, r, response)
}
