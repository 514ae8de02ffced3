// Package notifier consumes the durable tasks queue and fans events out to
// connected websocket clients. It keeps no state of its own beyond the live
// connection registry.
package notifier

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// sendBufferSize is the per-connection outbound queue. A client that falls
// this far behind is dropped rather than allowed to stall the broadcast.
const sendBufferSize = 64

// Frame is the message pushed to clients: a named event with the raw
// entity snapshot as payload.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// client is one tracked websocket connection.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// writePump drains the client's send queue onto the connection.
func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	// Registry closed the channel: say goodbye cleanly.
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

// Hub tracks live connections and broadcasts every event to all of them.
// There is no per-client filtering or targeting.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// Register starts tracking a connection and returns its ephemeral id.
func (h *Hub) Register(conn *websocket.Conn) string {
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	go c.writePump()

	slog.Info("client connected", "connection_id", c.id)
	return c.id
}

// Unregister stops tracking a connection and releases its writer. The send
// channel is closed while the lock is held so Broadcast never writes to a
// closed channel.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(c.send)
	}
	h.mu.Unlock()

	if ok {
		slog.Info("client disconnected", "connection_id", id)
	}
}

// Broadcast pushes a named event to every connected client. Clients whose
// send queue is full are dropped. Sends happen under the read lock; they
// never block, so the lock is held only briefly.
func (h *Hub) Broadcast(event string, data json.RawMessage) {
	msg, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		slog.Error("failed to marshal frame", "event", event, "error", err)
		return
	}

	var dropped []string
	h.mu.RLock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			dropped = append(dropped, c.id)
		}
	}
	h.mu.RUnlock()

	for _, id := range dropped {
		slog.Warn("dropping slow client", "connection_id", id)
		h.Unregister(id)
	}
}

// Len returns the number of tracked connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	for _, c := range h.clients {
		close(c.send)
	}
	h.clients = make(map[string]*client)
	h.mu.Unlock()
}
