package http

import (
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"petrodash/internal/config"
	apierrors "petrodash/internal/errors"
	"petrodash/internal/infrastructure"
	"petrodash/internal/middleware"
	"petrodash/internal/responseformat"
	"petrodash/internal/series"
	"petrodash/internal/services"
)

// reservedParams are query parameters that are not view filters
var reservedParams = map[string]bool{
	"window":    true,
	"anchor":    true,
	"page":      true,
	"page_size": true,
	"format":    true,
	"views":     true,
}

// ViewHandler serves charts, tables and exports of dashboard views
type ViewHandler struct {
	service      DashboardService
	formatter    *responseformat.Formatter
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewViewHandler creates a view handler
func NewViewHandler(service DashboardService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ViewHandler {
	return &ViewHandler{
		service:      service,
		formatter:    responseformat.NewFormatter(),
		query:        middleware.NewQueryParamValidator(errorHandler),
		logger:       logger.With(slog.String("handler", "views")),
		errorHandler: errorHandler,
	}
}

// Routes mounts under /api/views
func (h *ViewHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListViews)
	r.Route("/{view}", func(r chi.Router) {
		r.Get("/chart", h.GetChart)
		r.Get("/table", h.GetTable)
		r.Get("/state", h.GetState)
		r.Get("/export.{format}", h.Export)
	})
	return r
}

// ListViews handles GET /api/views
func (h *ViewHandler) ListViews(w http.ResponseWriter, r *http.Request) {
	views := h.service.Views()
	render.JSON(w, r, map[string]interface{}{
		"views": views,
		"count": len(views),
	})
}

// GetChart handles GET /api/views/{view}/chart
func (h *ViewHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	window, ok := h.query.ValidateInt(w, r, "window", -1, config.MaxChartWindow, 0)
	if !ok {
		return
	}
	anchor := strings.TrimSpace(r.URL.Query().Get("anchor"))

	chart, err := h.service.Chart(r.Context(), services.ChartQuery{
		UserID:  infrastructure.GetUserID(r.Context()),
		View:    chi.URLParam(r, "view"),
		Filters: filtersFromQuery(r),
		Window:  window,
		Anchor:  anchor,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.write(w, r, chart)
}

// GetTable handles GET /api/views/{view}/table
func (h *ViewHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	page, ok := h.query.ValidateInt(w, r, "page", 1, 1<<20, 1)
	if !ok {
		return
	}
	size, ok := h.query.ValidateInt(w, r, "page_size", 1, config.MaxPageSize, series.DefaultPageSize)
	if !ok {
		return
	}

	table, err := h.service.Table(r.Context(), services.TableQuery{
		UserID:   infrastructure.GetUserID(r.Context()),
		View:     chi.URLParam(r, "view"),
		Filters:  filtersFromQuery(r),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.write(w, r, table)
}

// GetState handles GET /api/views/{view}/state
func (h *ViewHandler) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State(infrastructure.GetUserID(r.Context()), chi.URLParam(r, "view"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.write(w, r, state)
}

// Export handles GET /api/views/{view}/export.{csv|xlsx}
func (h *ViewHandler) Export(w http.ResponseWriter, r *http.Request) {
	view := chi.URLParam(r, "view")
	export, err := h.service.Export(r.Context(),
		infrastructure.GetUserID(r.Context()),
		view,
		filtersFromQuery(r),
		chi.URLParam(r, "format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "view exported",
		slog.String("view", view),
		slog.String("filename", export.Filename),
		slog.Int("bytes", len(export.Data)))

	writeAttachment(w, export.Filename, export.ContentType, export.Data)
}

// Overview handles GET /api/overview?views=a,b
func (h *ViewHandler) Overview(w http.ResponseWriter, r *http.Request) {
	var views []string
	if raw := r.URL.Query().Get("views"); raw != "" {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				views = append(views, v)
			}
		}
	}

	entries, err := h.service.Overview(r.Context(), infrastructure.GetUserID(r.Context()), views)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.write(w, r, map[string]interface{}{
		"views": entries,
		"count": len(entries),
	})
}

func (h *ViewHandler) write(w http.ResponseWriter, r *http.Request, data any) {
	if _, err := h.formatter.Negotiate(r); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := h.formatter.WriteResponse(w, r, http.StatusOK, data); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write response",
			slog.String("error", err.Error()))
	}
}

// filtersFromQuery collects every non-reserved query parameter
func filtersFromQuery(r *http.Request) map[string]string {
	filters := make(map[string]string)
	for key, values := range r.URL.Query() {
		if reservedParams[key] || len(values) == 0 {
			continue
		}
		filters[key] = values[0]
	}
	return filters
}

func writeAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
