package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Generic event types. Applications define their own alongside these.
const (
	EventConnected = "connected"
	EventMessage   = "message"
	EventError     = "error"
)

// Event is one SSE frame. An empty Type is sent as a plain data frame,
// which browsers dispatch as "message".
type Event struct {
	ID   string
	Type string
	Data []byte
}

// JSON builds an event with v marshalled as its data.
func JSON(eventType string, v any) (Event, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Event{}, fmt.Errorf("sse: encode %s event: %w", eventType, err)
	}
	return Event{Type: eventType, Data: data}, nil
}

// WriteTo writes e in wire format. Multi-line data becomes one data field
// per line.
func (e Event) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if e.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", e.ID)
	}
	if e.Type != "" {
		fmt.Fprintf(&buf, "event: %s\n", e.Type)
	}
	for _, line := range bytes.Split(e.Data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	return buf.WriteTo(w)
}
