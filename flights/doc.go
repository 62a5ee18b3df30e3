// Package flights is the flight search domain: tickets, fares, the HTTP
// client for the flights API and the fetchers built on it.
package flights
