package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Hub is the single connection registry for the process. It is constructed
// once in main and handed to everything that pushes events; there is no
// package-level instance.
type Hub struct {
	mu      sync.RWMutex
	byUser  map[string]map[*Client]struct{}
	byRole  map[string]map[*Client]struct{}
	byOrder map[string]map[*Client]struct{}
	closed  bool
}

func NewHub() *Hub {
	return &Hub{
		byUser:  make(map[string]map[*Client]struct{}),
		byRole:  make(map[string]map[*Client]struct{}),
		byOrder: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		c.Close()
		return
	}
	addTo(h.byUser, c.UserID, c)
	addTo(h.byRole, c.Role, c)
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	removeFrom(h.byUser, c.UserID, c)
	removeFrom(h.byRole, c.Role, c)
	for orderID := range h.byOrder {
		removeFrom(h.byOrder, orderID, c)
	}
}

// JoinOrder subscribes a client to the ephemeral per-order channel.
func (h *Hub) JoinOrder(c *Client, orderID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	addTo(h.byOrder, orderID, c)
}

func (h *Hub) LeaveOrder(c *Client, orderID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	removeFrom(h.byOrder, orderID, c)
}

func (h *Hub) RouteToUser(userID string, ev Event) {
	h.broadcast(h.snapshot(h.byUser, userID), ev)
}

func (h *Hub) RouteToRole(role string, ev Event) {
	h.broadcast(h.snapshot(h.byRole, role), ev)
}

func (h *Hub) RouteToOrder(orderID string, ev Event) {
	h.broadcast(h.snapshot(h.byOrder, orderID), ev)
}

// Shutdown signals every client; pumps send a proper close frame and exit.
// Client Send channels stay open so a route racing the shutdown never panics.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true

	seen := make(map[*Client]struct{})
	for _, set := range h.byUser {
		for c := range set {
			seen[c] = struct{}{}
		}
	}
	for c := range seen {
		c.Close()
	}
	h.byUser = make(map[string]map[*Client]struct{})
	h.byRole = make(map[string]map[*Client]struct{})
	h.byOrder = make(map[string]map[*Client]struct{})

	log.Println("🔌 Realtime hub shut down")
}

func (h *Hub) snapshot(m map[string]map[*Client]struct{}, key string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := m[key]
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (h *Hub) broadcast(clients []*Client, ev Event) {
	if len(clients) == 0 {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("❌ Event serialization failed (%s): %v", ev.Type, err)
		return
	}

	for _, c := range clients {
		select {
		case c.Send <- payload:
		default:
			// Slow consumer: drop rather than stall the transition path.
			log.Printf("⚠️ Dropping %s event for slow client (user %s)", ev.Type, c.UserID)
		}
	}
}

func addTo(m map[string]map[*Client]struct{}, key string, c *Client) {
	if key == "" {
		return
	}
	if m[key] == nil {
		m[key] = make(map[*Client]struct{})
	}
	m[key][c] = struct{}{}
}

func removeFrom(m map[string]map[*Client]struct{}, key string, c *Client) {
	if set, ok := m[key]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(m, key)
		}
	}
}
