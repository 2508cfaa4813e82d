package websocket

import (
	"time"

	"github.com/coder/websocket"

	"github.com/dmckenna-gumgum/component-builder/internal/types"
)

// Client represents a WebSocket client connection
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	remote   string
	joinedAt time.Time
}

// Message is the JSON frame pushed to browsers.
type Message struct {
	Type      types.EventType       `json:"type"`
	ID        string                `json:"id,omitempty"`
	Component *types.SavedComponent `json:"component,omitempty"`
	Error     *types.PreviewError   `json:"error,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}
