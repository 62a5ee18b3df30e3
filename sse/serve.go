package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/flightsearch/logger"
)

// DefaultKeepAlive is the comment interval used when Serve is given zero.
// It stays under common proxy idle timeouts.
const DefaultKeepAlive = 30 * time.Second

type connectedEvent struct {
	ClientID string            `json:"client_id"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Serve streams c to w until c is closed and drained or the request
// context is done. The caller registers c and feeds it.
func Serve(w http.ResponseWriter, r *http.Request, c *Client, keepAlive time.Duration) {
	log := logger.WithComponent("sse").WithFields(logger.Fields("client_id", c.id))
	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}

	// Streams outlive the server's WriteTimeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("could not clear write deadline", logger.Fields(logger.FieldError, err.Error()))
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	hello, _ := json.Marshal(connectedEvent{ClientID: c.id, Metadata: c.metadata})
	_, _ = Event{Type: EventConnected, Data: hello}.WriteTo(w)
	flusher.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("client disconnected", logger.Fields("reason", ctx.Err().Error()))
			return
		case e, ok := <-c.Events():
			if !ok {
				log.Debug("stream closed")
				return
			}
			if _, err := e.WriteTo(w); err != nil {
				log.Debug("write failed", logger.Fields(logger.FieldError, err.Error()))
				return
			}
			flusher.Flush()
		case <-ticker.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}
