package searchapi

import (
	"github.com/kbukum/flightsearch/enrich"
	"github.com/kbukum/flightsearch/flights"
	"github.com/kbukum/flightsearch/sse"
	"github.com/kbukum/flightsearch/store"
)

// Stream event types.
const (
	EventReset   = "reset"
	EventTicket  = "ticket"
	EventWarning = "warning"
	EventFailure = "failure"
	EventSettled = "settled"
)

// ResetEvent carries the whole listing.
type ResetEvent struct {
	Tickets []flights.Ticket `json:"tickets"`
}

// TicketEvent carries one ticket replaced in place.
type TicketEvent struct {
	Index  int            `json:"index"`
	Ticket flights.Ticket `json:"ticket"`
}

// streamListener forwards session notifications to an SSE client and
// closes it on the terminal one.
type streamListener struct {
	client *sse.Client
}

var _ enrich.Listener[flights.Ticket] = (*streamListener)(nil)

func (l *streamListener) OnReset(view store.View[flights.Ticket]) {
	tickets := make([]flights.Ticket, view.Len())
	for i := range tickets {
		tickets[i] = view.At(i)
	}
	l.client.SendJSON(EventReset, ResetEvent{Tickets: tickets})
}

func (l *streamListener) OnItemChanged(index int, t flights.Ticket) {
	l.client.SendJSON(EventTicket, TicketEvent{Index: index, Ticket: t})
}

func (l *streamListener) OnWarning(err error) {
	l.client.SendJSON(EventWarning, errorBody(err))
}

func (l *streamListener) OnFailure(err error) {
	l.client.SendJSON(EventFailure, errorBody(err))
	l.client.Close()
}

func (l *streamListener) OnSettled(s enrich.RoundSummary) {
	l.client.SendJSON(EventSettled, s)
	l.client.Close()
}
