package notifyhub

import (
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/moyoez/devconf/tool"
	"github.com/moyoez/devconf/types"
)

// Hub holds WebSocket connections and broadcasts notifications to all clients.
// Implements notify.Broadcaster.
type Hub struct {
	mu    sync.RWMutex
	conns map[*websocket.Conn]*sync.Mutex
}

// New creates a new notify hub.
func New() *Hub {
	return &Hub{
		conns: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Register adds a WebSocket connection to the hub.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = &sync.Mutex{}
}

// Unregister removes a WebSocket connection from the hub.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends the notification as JSON to all registered connections.
// A connection accepts one writer at a time.
func (h *Hub) Broadcast(notification *types.Notification) {
	if notification == nil {
		return
	}
	payload, err := sonic.Marshal(notification)
	if err != nil {
		tool.DefaultLogger.Debugf("[NotifyHub] marshal %s: %v", notification.Type, err)
		return
	}

	h.mu.RLock()
	type target struct {
		conn *websocket.Conn
		mu   *sync.Mutex
	}
	targets := make([]target, 0, len(h.conns))
	for c, mu := range h.conns {
		targets = append(targets, target{c, mu})
	}
	h.mu.RUnlock()

	for _, t := range targets {
		t.mu.Lock()
		err := t.conn.WriteMessage(websocket.TextMessage, payload)
		t.mu.Unlock()
		if err != nil {
			tool.DefaultLogger.Debugf("[NotifyHub] dropping client: %v", err)
			h.Unregister(t.conn)
		}
	}
}
