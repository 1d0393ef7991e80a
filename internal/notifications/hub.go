package notifications

import (
	"context"
	"errors"
	"sync"

	"openobservatory/internal/middleware"
	"openobservatory/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// Limits caps how many sockets the hub accepts.
type Limits struct {
	PerUser int
	Total   int
}

// DefaultLimits allow a user a handful of tabs and devices.
var DefaultLimits = Limits{PerUser: 12, Total: 10000}

var (
	ErrServerConnLimit = errors.New("server connection limit reached")
	ErrUserConnLimit   = errors.New("user connection limit reached")
	ErrHubClosed       = errors.New("notification hub is shutting down")
)

// Hub tracks the open notification sockets of every signed in observer.
type Hub struct {
	limits Limits

	mu     sync.RWMutex
	users  map[uint]map[*Client]struct{}
	total  int
	closed bool
}

func NewHub() *Hub {
	return NewHubWithLimits(DefaultLimits)
}

func NewHubWithLimits(limits Limits) *Hub {
	return &Hub{limits: limits, users: make(map[uint]map[*Client]struct{})}
}

func (h *Hub) Name() string { return "notification hub" }

// Register adds a socket for userID. conn may be nil in tests.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case h.closed:
		return nil, ErrHubClosed
	case h.total >= h.limits.Total:
		return nil, ErrServerConnLimit
	case len(h.users[userID]) >= h.limits.PerUser:
		return nil, ErrUserConnLimit
	}

	if h.users[userID] == nil {
		h.users[userID] = make(map[*Client]struct{})
	}
	client := NewClient(h, conn, userID)
	h.users[userID][client] = struct{}{}
	h.total++
	observability.WebSocketConnectionsTotal.Inc()
	return client, nil
}

// UnregisterClient is idempotent.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.users[client.UserID]
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.users, client.UserID)
	}
	h.total--
	observability.WebSocketConnectionsTotal.Dec()
	client.closeSend()
}

// Broadcast queues message on every socket of userID.
func (h *Hub) Broadcast(userID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for c := range h.users[userID] {
		c.TrySend(data)
	}
}

// BroadcastAll queues message on every open socket.
func (h *Hub) BroadcastAll(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for _, set := range h.users {
		for c := range set {
			c.TrySend(data)
		}
	}
}

func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// StartWiring feeds messages from the notifier's Redis subscription into
// the hub. Per-user channels go to that user and the broadcast channel
// goes to everybody.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.Subscribe(ctx, func(channel, payload string) {
		if channel == broadcastChannel {
			h.BroadcastAll(payload)
			return
		}
		if userID, ok := ParseUserChannel(channel); ok {
			h.Broadcast(userID, payload)
			return
		}
		middleware.Logger.Warn("invalid notification channel", "channel", channel)
	})
}

// Shutdown refuses new sockets and has every live socket send a going-away
// close frame. Calling it twice is a no-op.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	var clients []*Client
	for _, set := range h.users {
		for c := range set {
			clients = append(clients, c)
		}
	}
	h.users = make(map[uint]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	// WritePump owns the socket, so it sends the frame and closes Conn.
	closing := websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")
	for _, c := range clients {
		c.closeWith(closing)
		observability.WebSocketConnectionsTotal.Dec()
	}
	return nil
}
