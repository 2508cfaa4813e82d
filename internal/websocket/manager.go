// Package websocket pushes live events to connected browsers: saved and
// deleted components, runtime errors reported by preview iframes and system
// prompt reloads.
//
// A single hub goroutine owns the client set. Connections register and
// unregister through channels and every broadcast is fanned out by the hub.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/dmckenna-gumgum/component-builder/internal/logging"
	"github.com/dmckenna-gumgum/component-builder/internal/types"
	"github.com/dmckenna-gumgum/component-builder/internal/validation"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Hub handles WebSocket connection management and broadcasting.
type Hub struct {
	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	allowedOrigins []string
	logger         logging.Logger
	now            func() time.Time

	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	shutdownOnce sync.Once
}

// NewHub creates a hub and starts its goroutine. Browsers may connect from
// any of allowedOrigins ("*" allows all) or from the server's own host.
func NewHub(allowedOrigins []string, logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:        make(map[*websocket.Conn]*Client),
		broadcast:      make(chan []byte, 256),
		register:       make(chan *Client, 32),
		unregister:     make(chan *Client, 32),
		allowedOrigins: allowedOrigins,
		logger:         logger.WithComponent("websocket"),
		now:            time.Now,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}

	go h.run()

	return h
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	origin := r.Header.Get("Origin")
	if origin != "" && !h.originAllowed(origin, r.Host) {
		h.logger.Warn(r.Context(), nil, "WebSocket connection rejected", "origin", origin, "remote", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// origin is checked above
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	client := &Client{
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		remote:   r.RemoteAddr,
		joinedAt: h.now(),
	}

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	go h.writePump(client)
	h.readPump(client)
}

func (h *Hub) originAllowed(origin, host string) bool {
	if u, err := url.Parse(origin); err == nil && u.Host == host {
		return true
	}
	return validation.ValidateOrigin(origin, h.allowedOrigins) == nil
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.clientsMutex.Lock()
			h.clients[client.conn] = client
			total := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(h.ctx, "WebSocket client connected", "remote", client.remote, "clients", total)

		case client := <-h.unregister:
			h.drop(client, websocket.StatusNormalClosure, "")

		case message := <-h.broadcast:
			h.fanOut(message)

		case <-h.ctx.Done():
			h.clientsMutex.Lock()
			clients := h.clients
			h.clients = make(map[*websocket.Conn]*Client)
			h.clientsMutex.Unlock()

			for _, client := range clients {
				close(client.send)
				_ = client.conn.Close(websocket.StatusGoingAway, "server shutdown")
			}
			return
		}
	}
}

// drop removes a client. Only the hub goroutine calls it, so send is closed
// exactly once.
func (h *Hub) drop(client *Client, code websocket.StatusCode, reason string) {
	h.clientsMutex.Lock()
	_, exists := h.clients[client.conn]
	if exists {
		delete(h.clients, client.conn)
	}
	total := len(h.clients)
	h.clientsMutex.Unlock()

	if !exists {
		return
	}
	close(client.send)
	_ = client.conn.Close(code, reason)
	h.logger.Debug(h.ctx, "WebSocket client disconnected", "remote", client.remote, "clients", total)
}

func (h *Hub) fanOut(message []byte) {
	h.clientsMutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.clientsMutex.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			h.logger.Warn(h.ctx, nil, "WebSocket client too slow, disconnecting", "remote", client.remote)
			h.drop(client, websocket.StatusPolicyViolation, "too slow")
		}
	}
}

// readPump drains incoming frames until the connection closes. Browsers do
// not send anything meaningful, but reading keeps control frames flowing.
func (h *Hub) readPump(client *Client) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.ctx.Done():
		}
	}()

	for {
		_, data, err := client.conn.Read(h.ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure &&
				websocket.CloseStatus(err) != websocket.StatusGoingAway &&
				h.ctx.Err() == nil {
				h.logger.Debug(h.ctx, "WebSocket read ended", "remote", client.remote, "error", err.Error())
			}
			return
		}
		h.logger.Debug(h.ctx, "Ignoring WebSocket message", "remote", client.remote, "bytes", len(data))
	}
}

func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err := client.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			err := client.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-h.ctx.Done():
			return
		}
	}
}

// Broadcast queues a message for every connected client. Messages are
// dropped when the hub is shut down or its queue is full.
func (h *Hub) Broadcast(message Message) {
	if message.Timestamp.IsZero() {
		message.Timestamp = h.now().UTC()
	}
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error(h.ctx, err, "Failed to encode WebSocket message", "type", message.Type)
		return
	}

	select {
	case <-h.ctx.Done():
		return
	default:
	}

	select {
	case h.broadcast <- data:
	case <-h.ctx.Done():
	default:
		h.logger.Warn(h.ctx, nil, "Broadcast queue full, dropping message", "type", message.Type)
	}
}

// PublishComponentEvent broadcasts a registry change.
func (h *Hub) PublishComponentEvent(event types.ComponentEvent) {
	h.Broadcast(Message{Type: event.Type, ID: event.ID, Component: event.Component})
}

// PublishPreviewError broadcasts a runtime error reported by a preview.
func (h *Hub) PublishPreviewError(report types.PreviewError) {
	h.Broadcast(Message{Type: types.EventPreviewError, ID: report.ComponentID, Error: &report})
}

// PublishPromptReloaded tells browsers the system prompt changed.
func (h *Hub) PublishPromptReloaded() {
	h.Broadcast(Message{Type: types.EventPromptReloaded})
}

// Forward publishes events from a registry watcher until the channel closes
// or ctx is done.
func (h *Hub) Forward(ctx context.Context, events <-chan types.ComponentEvent) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			h.PublishComponentEvent(event)
		case <-ctx.Done():
			return
		case <-h.ctx.Done():
			return
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Shutdown closes every connection and stops the hub.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownOnce.Do(h.cancel)

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
