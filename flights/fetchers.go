package flights

import (
	"context"

	"github.com/kbukum/flightsearch/fetch"
)

// Fetcher names.
const (
	FetcherTickets = "tickets"
	FetcherPrice   = "price"
)

// TicketsFetcher lists a route's tickets through c. The configured breaker
// and rate limit wrap the call inside mw.
func TicketsFetcher(c *Client, mw ...fetch.Middleware[Query, []Ticket]) fetch.Fetcher[Query, []Ticket] {
	var f fetch.Fetcher[Query, []Ticket] = fetch.NewFunc(FetcherTickets, c.SearchTickets)
	if c.cfg.Breaker.Enabled() {
		mw = append(mw, fetch.WithBreaker[Query, []Ticket](fetch.NewBreaker(FetcherTickets, c.cfg.Breaker)))
	}
	if l := c.Limiter(); l != nil {
		mw = append(mw, fetch.WithRateLimit[Query, []Ticket](l))
	}
	return fetch.Chain(mw...)(f)
}

// PriceFetcher quotes a ticket's fare through c and returns the ticket
// carrying it.
func PriceFetcher(c *Client, mw ...fetch.Middleware[Ticket, Ticket]) fetch.Fetcher[Ticket, Ticket] {
	var f fetch.Fetcher[Ticket, Ticket] = fetch.NewFunc(FetcherPrice, func(ctx context.Context, t Ticket) (Ticket, error) {
		p, err := c.GetPrice(ctx, PriceRequestFor(t))
		if err != nil {
			return Ticket{}, err
		}
		return t.WithPrice(p), nil
	})
	if c.cfg.Breaker.Enabled() {
		mw = append(mw, fetch.WithBreaker[Ticket, Ticket](fetch.NewBreaker(FetcherPrice, c.cfg.Breaker)))
	}
	if l := c.Limiter(); l != nil {
		mw = append(mw, fetch.WithRateLimit[Ticket, Ticket](l))
	}
	return fetch.Chain(mw...)(f)
}
