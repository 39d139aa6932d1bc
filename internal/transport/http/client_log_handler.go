package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	apierrors "petrodash/internal/errors"
	"petrodash/internal/infrastructure"
)

// maxClientMessage bounds what a browser can write into the server log
const maxClientMessage = 2000

// ClientLogHandler forwards browser log entries to the server log
type ClientLogHandler struct {
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewClientLogHandler creates a new client log handler
func NewClientLogHandler(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ClientLogHandler {
	return &ClientLogHandler{
		logger:       logger.With(slog.String("handler", "client_log")),
		errorHandler: errorHandler,
	}
}

// LogRequest represents a client log entry
type LogRequest struct {
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Source  string                 `json:"source,omitempty"`
	View    string                 `json:"view,omitempty"`
}

// Bind implements render.Binder
func (l *LogRequest) Bind(r *http.Request) error {
	l.Message = strings.TrimSpace(l.Message)
	if l.Message == "" {
		return apierrors.ErrValidation("message", "message is required")
	}
	if len(l.Message) > maxClientMessage {
		l.Message = l.Message[:maxClientMessage]
	}
	return nil
}

func (l *LogRequest) level() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Handle handles POST /api/logs
func (h *ClientLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, bindError(err))
		return
	}

	attrs := []slog.Attr{
		slog.String("client_source", req.Source),
		slog.String("user_id", infrastructure.GetUserID(r.Context())),
	}
	if req.View != "" {
		attrs = append(attrs, slog.String("view", req.View))
	}
	if req.Data != nil {
		attrs = append(attrs, slog.Any("data", req.Data))
	}

	h.logger.LogAttrs(r.Context(), req.level(), req.Message, attrs...)

	render.JSON(w, r, map[string]interface{}{
		"success": true,
	})
}
