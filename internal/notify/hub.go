package notify

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// Token auth happens before the upgrade; cross-origin pages cannot
	// present a valid bearer token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one websocket connection belonging to a user.
type client struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
}

// Hub fans notification messages out to connected websocket clients.
// A user may hold several connections (multiple tabs).
type Hub struct {
	mu      sync.Mutex
	clients map[int64]map[*client]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*client]bool)}
}

// Send delivers a message to all of a user's connections without blocking:
// a connection that cannot keep up is dropped.
func (h *Hub) Send(userID int64, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients[userID] {
		select {
		case c.send <- []byte(message):
		default:
			h.removeLocked(c)
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*client]bool)
	}
	h.clients[c.userID][c] = true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if conns, ok := h.clients[c.userID]; ok && conns[c] {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clients, c.userID)
		}
		close(c.send)
	}
}

// ServeWS upgrades the request to a websocket and streams the user's
// notifications until either side disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{userID: userID, conn: conn, send: make(chan []byte, 16)}
	h.add(c)

	// Writer: drain the send channel until it closes.
	go func() {
		for msg := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
		conn.Close()
	}()

	// Reader: only used to detect disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
}
