package main

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"text/tabwriter"

	"github.com/kbukum/flightsearch/enrich"
	"github.com/kbukum/flightsearch/errors"
	"github.com/kbukum/flightsearch/flights"
	"github.com/kbukum/flightsearch/store"
)

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type result struct {
	err     error
	summary enrich.RoundSummary
}

// renderer is the terminal view of a search. It prints the listing when it
// arrives, each fare as it is merged, and reports the outcome on done.
type renderer struct {
	out  io.Writer
	done chan result
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: &syncWriter{w: out}, done: make(chan result, 1)}
}

func (r *renderer) finish(res result) {
	select {
	case r.done <- res:
	default:
	}
}

func (r *renderer) OnReset(view store.View[flights.Ticket]) {
	fmt.Fprintf(r.out, "Found %d tickets\n", view.Len())
	for i := range view.Len() {
		t := view.At(i)
		fmt.Fprintf(r.out, "  %-8s %-10s %s-%s  %s\n", t.FlightNumber, t.Airline.Name, t.Departure, t.Arrival, formatPrice(t))
	}
}

func (r *renderer) OnItemChanged(index int, t flights.Ticket) {
	fmt.Fprintf(r.out, "  [%d] %-8s %s\n", index, t.FlightNumber, formatPrice(t))
}

func (r *renderer) OnWarning(err error) {
	fmt.Fprintf(r.out, "warning: %s\n", describe(err))
}

func (r *renderer) OnFailure(err error) {
	fmt.Fprintf(r.out, "error: %s\n", describe(err))
	r.finish(result{err: err})
}

func (r *renderer) OnSettled(s enrich.RoundSummary) {
	fmt.Fprintf(r.out, "Priced %d of %d tickets", s.Enriched, s.Items)
	if s.Failed > 0 {
		fmt.Fprintf(r.out, " (%d failed)", s.Failed)
	}
	fmt.Fprintln(r.out)
	r.finish(result{summary: s})
}

// describe prefers the AppError message over the full cause chain.
func describe(err error) string {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return err.Error()
	}
	if appErr.Cause != nil {
		return appErr.Message + ": " + describe(appErr.Cause)
	}
	return appErr.Message
}

func formatPrice(t flights.Ticket) string {
	if !t.Priced() {
		return "..."
	}
	return fmt.Sprintf("%s %.0f", t.Price.Currency, t.Price.Price)
}

func printTable(out io.Writer, tickets []flights.Ticket) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FLIGHT\tAIRLINE\tDEPARTS\tARRIVES\tDURATION\tSTOPS\tPRICE\tSEATS")
	for _, t := range tickets {
		seats := "-"
		if t.Priced() {
			seats = t.Price.Seats
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.FlightNumber, t.Airline.Name, t.Departure, t.Arrival, t.Duration,
			strconv.Itoa(t.Stops), formatPrice(t), seats)
	}
	_ = tw.Flush()
}
