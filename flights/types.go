package flights

import (
	"fmt"

	"github.com/kbukum/flightsearch/validation"
)

// Default route searched when none is given.
const (
	DefaultFrom = "DEL"
	DefaultTo   = "HYD"
)

// Airline operates a ticket's flight.
type Airline struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// Price is the fare quote for one flight.
type Price struct {
	Price        float64 `json:"price"`
	Seats        string  `json:"seats"`
	Currency     string  `json:"currency"`
	FlightNumber string  `json:"flight_number"`
	From         string  `json:"from"`
	To           string  `json:"to"`
}

// Ticket is one search result. Price is nil until the ticket is enriched.
type Ticket struct {
	From         string  `json:"from"`
	To           string  `json:"to"`
	FlightNumber string  `json:"flight_number"`
	Departure    string  `json:"departure"`
	Arrival      string  `json:"arrival"`
	Duration     string  `json:"duration"`
	Instructions string  `json:"instructions,omitempty"`
	Stops        int     `json:"stops"`
	Airline      Airline `json:"airline"`
	Price        *Price  `json:"price,omitempty"`
}

// Key identifies a ticket: the flight number on a route.
type Key struct {
	FlightNumber string
	From         string
	To           string
}

func (k Key) String() string {
	return fmt.Sprintf("%s %s-%s", k.FlightNumber, k.From, k.To)
}

// Key returns the ticket's identity.
func (t Ticket) Key() Key {
	return Key{FlightNumber: t.FlightNumber, From: t.From, To: t.To}
}

// KeyOf is Ticket.Key as a function value.
func KeyOf(t Ticket) Key { return t.Key() }

// WithPrice returns a copy of t carrying p.
func (t Ticket) WithPrice(p Price) Ticket {
	t.Price = &p
	return t
}

// Priced reports whether t has been enriched.
func (t Ticket) Priced() bool { return t.Price != nil }

// Query is a route search.
type Query struct {
	From string `json:"from" validate:"required,iata"`
	To   string `json:"to" validate:"required,iata,nefield=From"`
}

// DefaultQuery searches DefaultFrom to DefaultTo.
func DefaultQuery() Query {
	return Query{From: DefaultFrom, To: DefaultTo}
}

// Validate validates the query.
func (q Query) Validate() error {
	return validation.Validate(q)
}

// PriceRequest identifies the fare to quote.
type PriceRequest struct {
	FlightNumber string `json:"flight_number" validate:"required"`
	From         string `json:"from" validate:"required,iata"`
	To           string `json:"to" validate:"required,iata"`
}

// PriceRequestFor builds the price request for t.
func PriceRequestFor(t Ticket) PriceRequest {
	return PriceRequest{FlightNumber: t.FlightNumber, From: t.From, To: t.To}
}
