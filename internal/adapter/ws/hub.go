// Package ws implements the WebSocket adapter for live dashboard updates.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/Strob0t/rentledger/internal/middleware"
	"github.com/Strob0t/rentledger/internal/port/broadcast"
)

const (
	writeTimeout = 5 * time.Second
	// sendBuffer is how many messages may queue for one connection before it
	// is dropped as too slow.
	sendBuffer = 16
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// conn wraps a single WebSocket connection bound to one workspace.
type conn struct {
	ws          *websocket.Conn
	send        chan []byte
	cancel      context.CancelFunc
	workspaceID string
}

// Hub manages active WebSocket connections grouped by workspace.
type Hub struct {
	mu             sync.RWMutex
	conns          map[*conn]struct{}
	originPatterns []string
}

var _ broadcast.Broadcaster = (*Hub)(nil)

// NewHub creates a hub. allowedOrigin is the CORS origin of the dashboard;
// "" or "*" accepts any origin.
func NewHub(allowedOrigin string) *Hub {
	h := &Hub{conns: make(map[*conn]struct{})}
	if allowedOrigin != "" && allowedOrigin != "*" {
		if u, err := url.Parse(allowedOrigin); err == nil && u.Host != "" {
			h.originPatterns = []string{u.Host}
		} else {
			h.originPatterns = []string{allowedOrigin}
		}
	}
	return h
}

// HandleWS upgrades the request and binds the connection to the workspace
// resolved by middleware.WorkspaceID.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{OriginPatterns: h.originPatterns}
	if len(h.originPatterns) == 0 {
		opts.InsecureSkipVerify = true
	}
	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	// The request context ends when the handler returns; the connection
	// outlives it.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := &conn{
		ws:          ws,
		send:        make(chan []byte, sendBuffer),
		cancel:      cancel,
		workspaceID: middleware.WorkspaceIDFromContext(r.Context()),
	}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("websocket connected", "remote", r.RemoteAddr, "workspace_id", c.workspaceID)

	go h.writeLoop(ctx, c)

	// Read loop (to detect disconnects and consume pings)
	go func() {
		defer func() {
			h.remove(c)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// BroadcastEvent marshals payload and sends it to every connection of the
// workspace in ctx.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}
	h.BroadcastToWorkspace(ctx, middleware.WorkspaceIDFromContext(ctx), Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}

// BroadcastToWorkspace queues msg for the connections of one workspace.
// It never waits on a peer: a connection whose queue is full is dropped.
func (h *Hub) BroadcastToWorkspace(ctx context.Context, workspaceID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		if c.workspaceID == workspaceID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- data:
		default:
			slog.WarnContext(ctx, "websocket send queue full, dropping connection", "workspace_id", workspaceID)
			h.remove(c)
		}
	}
}

// writeLoop drains c.send until the connection is removed.
func (h *Hub) writeLoop(ctx context.Context, c *conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.Debug("websocket write failed", "workspace_id", c.workspaceID, "error", err)
				h.remove(c)
				return
			}
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[*conn]struct{})
	h.mu.Unlock()

	for c := range conns {
		c.cancel()
		_ = c.ws.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("websocket disconnected", "workspace_id", c.workspaceID)
	}
}
