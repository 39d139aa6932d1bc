package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "petrodash/internal/errors"
)

// multipartOverhead covers form boundaries and headers around the file part
const multipartOverhead = 64 << 10

// IngestHandler accepts PDF uploads for conversion
type IngestHandler struct {
	service      IngestService
	maxUpload    int64
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewIngestHandler creates an ingest handler
func NewIngestHandler(service IngestService, maxUpload int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *IngestHandler {
	return &IngestHandler{
		service:      service,
		maxUpload:    maxUpload,
		logger:       logger.With(slog.String("handler", "ingest")),
		errorHandler: errorHandler,
	}
}

// Routes mounts under /api/ingest
func (h *IngestHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{kind}", h.Upload)
	return r
}

// Upload handles POST /api/ingest/{kind}. The PDF is read from the "file"
// form field. With preview=true only the summary is returned.
func (h *IngestHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "a PDF must be uploaded in the file field"))
		return
	}
	defer file.Close()

	document, err := io.ReadAll(file)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	kind := chi.URLParam(r, "kind")
	summary, err := h.service.Ingest(r.Context(), kind, filepath.Base(header.Filename), document)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "document converted",
		slog.String("kind", kind),
		slog.String("filename", summary.Filename),
		slog.Int("size", summary.Size),
		slog.Int("sheets", len(summary.Sheets)))

	if preview, _ := strconv.ParseBool(r.URL.Query().Get("preview")); preview {
		render.JSON(w, r, summary)
		return
	}
	writeAttachment(w, convertedName(summary.Filename), summary.ContentType, summary.Data)
}

// convertedName swaps the .pdf extension for .xlsx
func convertedName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if base == "" {
		base = "document"
	}
	return base + ".xlsx"
}
