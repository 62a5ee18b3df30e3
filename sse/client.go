package sse

import (
	"sync"

	"github.com/kbukum/flightsearch/logger"
)

// DefaultBuffer is the queue size of a client created without WithBuffer.
const DefaultBuffer = 256

// Client is one connected SSE consumer.
type Client struct {
	id       string
	metadata map[string]string
	events   chan Event

	mu      sync.Mutex
	closed  bool
	dropped int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMetadata adds a metadata key-value pair, echoed in the connected event.
func WithMetadata(key, value string) ClientOption {
	return func(c *Client) {
		c.metadata[key] = value
	}
}

// WithBuffer sets the queue size. Values below 1 keep the default.
func WithBuffer(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.events = make(chan Event, n)
		}
	}
}

// NewClient creates a client with an empty queue.
func NewClient(id string, opts ...ClientOption) *Client {
	c := &Client{
		id:       id,
		metadata: make(map[string]string),
		events:   make(chan Event, DefaultBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the client's identifier.
func (c *Client) ID() string { return c.id }

// Metadata returns the client's metadata.
func (c *Client) Metadata() map[string]string { return c.metadata }

// Events returns the queue Serve drains. It is closed by Close.
func (c *Client) Events() <-chan Event { return c.events }

// Send queues e without blocking. It returns false when the client is
// closed or its queue is full; a full queue drops the event.
func (c *Client) Send(e Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.events <- e:
		return true
	default:
		c.dropped++
		logger.Warn("sse client queue full, dropping event", logger.Fields(
			"client_id", c.id,
			"event", e.Type,
		))
		return false
	}
}

// SendJSON marshals v and queues it as an eventType event.
func (c *Client) SendJSON(eventType string, v any) bool {
	e, err := JSON(eventType, v)
	if err != nil {
		logger.Error("sse encode failed", logger.Fields("client_id", c.id, logger.FieldError, err.Error()))
		return false
	}
	return c.Send(e)
}

// Dropped returns how many events were discarded on a full queue.
func (c *Client) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close stops accepting events. Serve returns after draining what was
// already queued. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
}
