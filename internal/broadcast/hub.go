// Package broadcast fans territorial events out to live websocket
// subscribers. The hub observes the territorial authority; delivery is
// best-effort — a slow subscriber's messages are dropped, never the
// authority's time.
package broadcast

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/talgya/warfront/internal/metrics"
	"github.com/talgya/warfront/internal/territory"
)

const clientBuffer = 64

// Envelope is the wire shape of every broadcast message.
type Envelope struct {
	Type    string `json:"type"` // "update", "control", "contested"
	Payload any    `json:"payload"`
}

// Hub manages websocket subscribers and pushes territorial events to them.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]bool
	upgrader websocket.Upgrader
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // auth handled upstream
		},
	}
}

// ServeWS upgrades an HTTP request to a websocket subscription.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()
	slog.Info("broadcast subscriber joined", "subscribers", count)

	go h.writePump(c)
	go h.readPump(c)
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// TerritoryUpdated broadcasts an accepted influence mutation.
func (h *Hub) TerritoryUpdated(u territory.Update) {
	h.publish(Envelope{Type: "update", Payload: u})
}

// ControlChanged broadcasts a dominant-faction flip.
func (h *Hub) ControlChanged(c territory.ControlChange) {
	h.publish(Envelope{Type: "control", Payload: c})
}

// ContestChanged broadcasts a contested-status transition.
func (h *Hub) ContestChanged(c territory.ContestChange) {
	h.publish(Envelope{Type: "contested", Payload: c})
}

func (h *Hub) publish(env Envelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		slog.Warn("broadcast marshal failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			metrics.BroadcastDrops.Inc()
		}
	}
}

func (h *Hub) writePump(c *client) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.drop(c)
			return
		}
	}
}

// readPump discards inbound messages; subscription is one-way. Its real job
// is detecting disconnects.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	close(c.send)
	c.conn.Close()
	slog.Info("broadcast subscriber left", "subscribers", count)
}
