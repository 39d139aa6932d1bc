package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"petrodash/internal/infrastructure"
)

// Message types pushed to browsers
const (
	TypeConnection         = "connection"
	TypeViewRefreshed      = "view:refreshed"
	TypeViewFailed         = "view:failed"
	TypePreferencesUpdated = "preferences:updated"
)

// ErrHubStopped is returned when publishing to a stopped hub
var ErrHubStopped = errors.New("websocket hub stopped")

// Message is one event sent to clients. A non-empty UserID restricts
// delivery to that user's connections.
type Message struct {
	Type      string    `json:"type"`
	View      string    `json:"view,omitempty"`
	UserID    string    `json:"-"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"trace_id,omitempty"`
}

type outbound struct {
	userID  string
	payload []byte
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	droppedClients   atomic.Int64
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan outbound, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
	}
}

// Start runs the hub loop in the background. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop shuts the hub down, closing every client, and waits for the loop to exit
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	close(h.quit)
	h.mu.Unlock()
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)
	ctx := context.Background()

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			h.totalConnections.Add(1)
			h.metrics.RecordWebSocketClients(ctx, 1)

			h.logger.InfoContext(client.context(), "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("user_id", client.userID),
				slog.String("remote_addr", client.remoteAddr))

			if payload, err := json.Marshal(Message{
				Type:      TypeConnection,
				Data:      map[string]string{"status": "connected", "client_id": client.id},
				Timestamp: time.Now().UTC(),
				TraceID:   client.traceID,
			}); err == nil {
				h.deliver(client, payload)
			}

		case client := <-h.unregister:
			h.remove(client, "normal")

		case msg := <-h.broadcast:
			h.mu.RLock()
			targets := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				if msg.userID == "" || client.userID == msg.userID {
					targets = append(targets, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range targets {
				h.deliver(client, msg.payload)
			}
			h.logger.Debug("Broadcast message",
				slog.Int("client_count", len(targets)),
				slog.Int("message_size", len(msg.payload)))
		}
	}
}

// deliver queues payload for client, disconnecting it when its buffer is full.
// Only called from the run loop.
func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.send <- payload:
		h.messagesSent.Add(1)
	default:
		h.droppedClients.Add(1)
		h.remove(client, "slow_consumer")
	}
}

func (h *Hub) remove(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.RecordWebSocketClients(context.Background(), -1)
	h.logger.InfoContext(client.context(), "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Publish queues msg for delivery
func (h *Hub) Publish(ctx context.Context, msg Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if msg.TraceID == "" {
		msg.TraceID = infrastructure.GetTraceID(ctx)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", msg.Type))
		return err
	}

	select {
	case h.broadcast <- outbound{userID: msg.UserID, payload: payload}:
		return nil
	case <-h.quit:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns counters for the health endpoint
func (h *Hub) Stats() map[string]int64 {
	return map[string]int64{
		"active_clients":    int64(h.ClientCount()),
		"total_connections": h.totalConnections.Load(),
		"messages_sent":     h.messagesSent.Load(),
		"dropped_clients":   h.droppedClients.Load(),
	}
}
