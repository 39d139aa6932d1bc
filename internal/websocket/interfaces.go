package websocket

import (
	"net"
	"time"
)

// Connection is the subset of *websocket.Conn the hub needs. Tests supply
// an in-memory implementation.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() net.Addr
}
