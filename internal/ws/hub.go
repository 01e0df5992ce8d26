package ws

import (
	"context"
	"encoding/json"
	"sync"

	"photoquest/internal/events"
	"photoquest/internal/logger"
)

// Hub fans committed top-up events out to connected admin dashboards.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	logger.Debug("admin feed client connected", "user_id", c.UserID, "clients", n)
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
	}
	h.mu.Unlock()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// message is the wire frame sent to dashboards.
type message struct {
	Type  events.Type  `json:"type"`
	Event events.Event `json:"event"`
}

// Publish implements events.Publisher. Clients whose buffer is full are
// dropped rather than blocking the caller.
func (h *Hub) Publish(_ context.Context, e events.Event) error {
	data, err := json.Marshal(message{Type: e.Type, Event: e})
	if err != nil {
		return err
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.Send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Warn("dropping slow admin feed client", "user_id", c.UserID)
		h.Unregister(c)
	}
	return nil
}
