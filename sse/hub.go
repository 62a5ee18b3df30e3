package sse

import (
	"context"
	"sync"

	"github.com/kbukum/flightsearch/logger"
	"github.com/kbukum/flightsearch/observability"
)

// Hub tracks open clients by ID.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	stopped bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Register adds c. After Stop the client is closed immediately instead.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		c.Close()
		return
	}
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()
	logger.Debug("sse client registered", logger.Fields("client_id", c.id, logger.FieldCount, total))
}

// Unregister removes and closes c.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	c.Close()
}

// Count returns the number of open clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Get returns the client with id, or nil.
func (h *Hub) Get(id string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[id]
}

// Stop closes every client and rejects new ones. Safe to call more than once.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

// CheckHealth reports the number of open streams.
func (h *Hub) CheckHealth(context.Context) observability.Health {
	h.mu.RLock()
	defer h.mu.RUnlock()
	health := observability.Health{
		Name:    "sse",
		Status:  observability.HealthStatusUp,
		Details: map[string]any{"clients": len(h.clients)},
	}
	if h.stopped {
		health.Status = observability.HealthStatusDown
		health.Message = "stopped"
	}
	return health
}
