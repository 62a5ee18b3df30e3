package mockapi

import (
	"fmt"
	"hash/fnv"
	"slices"
	"strconv"
	"time"

	"github.com/kbukum/flightsearch/flights"
)

// Airports served by the catalog. Routes between any two of them exist.
var Airports = []string{"BLR", "BOM", "CCU", "DEL", "HYD", "MAA"}

type carrier struct {
	airline flights.Airline
	code    string
}

var carriers = []carrier{
	{flights.Airline{ID: 1, Name: "IndiGo"}, "6E"},
	{flights.Airline{ID: 2, Name: "Air India"}, "AI"},
	{flights.Airline{ID: 3, Name: "SpiceJet"}, "SG"},
	{flights.Airline{ID: 4, Name: "Vistara"}, "UK"},
	{flights.Airline{ID: 5, Name: "Akasa Air"}, "QP"},
}

func hashOf(parts ...string) uint32 {
	h := fnv.New32a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum32()
}

// HasRoute reports whether the catalog serves from → to.
func HasRoute(from, to string) bool {
	return from != to && slices.Contains(Airports, from) && slices.Contains(Airports, to)
}

// Tickets returns the deterministic listing for a route, unpriced.
func Tickets(from, to string) []flights.Ticket {
	if !HasRoute(from, to) {
		return nil
	}
	h := int(hashOf(from, to))
	n := 4 + h%4
	out := make([]flights.Ticket, 0, n)
	for i := range n {
		c := carriers[(h+i)%len(carriers)]
		dep := time.Duration(5*60+i*150+h%45) * time.Minute
		dur := time.Duration(90+(h/7+i*35)%150) * time.Minute
		stops := (h + i) % 3
		t := flights.Ticket{
			From:         from,
			To:           to,
			FlightNumber: fmt.Sprintf("%s-%d", c.code, 100+i*111+h%50),
			Departure:    clock(dep),
			Arrival:      clock(dep + dur),
			Duration:     fmt.Sprintf("%dh %02dm", int(dur.Hours()), int(dur.Minutes())%60),
			Stops:        stops,
			Airline:      c.airline,
		}
		if stops > 0 {
			t.Instructions = fmt.Sprintf("%d stop(s), change planes", stops)
		}
		out = append(out, t)
	}
	return out
}

// PriceOf returns the fare for a flight in the catalog.
func PriceOf(flightNumber, from, to string) (flights.Price, bool) {
	for _, t := range Tickets(from, to) {
		if t.FlightNumber != flightNumber {
			continue
		}
		h := hashOf(flightNumber, from, to)
		return flights.Price{
			Price:        float64(2500 + h%6000),
			Seats:        strconv.Itoa(int(1 + h%40)),
			Currency:     "INR",
			FlightNumber: flightNumber,
			From:         from,
			To:           to,
		}, true
	}
	return flights.Price{}, false
}

func clock(d time.Duration) string {
	m := int(d.Minutes()) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
