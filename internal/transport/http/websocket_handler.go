package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"petrodash/internal/infrastructure"
	"petrodash/internal/middleware"
	ws "petrodash/internal/websocket"
)

// WebSocketHandler upgrades /ws connections and hands them to the hub
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler creates a websocket handler. Origins are checked with
// the same allow list as CORS.
func NewWebSocketHandler(hub *ws.Hub, cors middleware.CORSConfig, logger *slog.Logger) *WebSocketHandler {
	logger = logger.With(slog.String("handler", "websocket"))
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || cors.OriginAllowed(origin) {
					return true
				}
				logger.WarnContext(r.Context(), "websocket origin rejected",
					slog.String("origin", origin))
				return false
			},
		},
	}
}

// ServeHTTP handles GET /ws. Browsers cannot set headers on the handshake,
// so the user may also be passed as ?user=.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := infrastructure.GetUserID(r.Context())
	if userID == "" {
		userID = strings.TrimSpace(r.URL.Query().Get("user"))
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}

	client := ws.NewClient(h.hub, conn, userID, infrastructure.GetTraceID(r.Context()), h.logger)
	h.logger.InfoContext(r.Context(), "websocket connected",
		slog.String("client_id", client.ID()),
		slog.String("user_id", userID),
		slog.String("remote_addr", r.RemoteAddr))
	client.Serve()
}
