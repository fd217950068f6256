package notifications

import (
	"context"
	"errors"
	"sync"

	"wall/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const defaultMaxConns = 256

// ErrConnectionLimit is returned by Register when the hub is full.
var ErrConnectionLimit = errors.New("connection limit reached")

// Hub tracks the websocket clients watching the wall.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	maxConns int
	closed   bool
	logger   *observability.WSLogger
}

// NewHub creates a hub accepting up to maxConns clients; zero uses the default.
func NewHub(maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	return &Hub{
		clients:  make(map[*Client]struct{}),
		maxConns: maxConns,
		logger:   observability.NewWSLogger("feed"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "feed hub" }

// Logger returns the hub's websocket logger.
func (h *Hub) Logger() *observability.WSLogger { return h.logger }

// Register adds a connection to the hub.
func (h *Hub) Register(conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errors.New("hub is shut down")
	}
	if len(h.clients) >= h.maxConns {
		return nil, ErrConnectionLimit
	}

	client := NewClient(h, conn, uuid.NewString())
	h.clients[client] = struct{}{}
	observability.WebSocketConnectionsTotal.Inc()
	h.logger.LogConnect(context.Background(), client.ID)
	return client, nil
}

// UnregisterClient removes a client and closes its send channel.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	observability.WebSocketConnectionsTotal.Dec()
	h.logger.LogDisconnect(context.Background(), client.ID, "unregistered")
}

// BroadcastAll sends message to every connected client.
func (h *Hub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.TrySend(message)
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every client's send channel, which makes each write pump
// send a close frame and exit.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.Send)
		observability.WebSocketConnectionsTotal.Dec()
	}
	return nil
}
