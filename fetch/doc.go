// Package fetch defines the request/response Fetcher used for both the
// listing and the per-record enrichment calls, plus middleware for
// logging, tracing, metrics and client-side rate limiting.
//
//	prices := fetch.Chain(
//		fetch.WithLogging[flights.Ticket, flights.Ticket](log),
//		fetch.WithTracing[flights.Ticket, flights.Ticket](),
//		fetch.WithRateLimit[flights.Ticket, flights.Ticket](limiter),
//	)(flights.PriceFetcher(client))
//
// Source and Bind turn a Fetcher into stream sources.
package fetch
