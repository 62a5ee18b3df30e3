// Package searchapi serves flight searches over HTTP.
//
// GET /search runs a search to completion and returns the priced listing
// as JSON. GET /search/stream returns the same search as Server-Sent
// Events: a reset event with the unpriced listing, one ticket event per
// fare merged in place, warning events, and a terminal settled or failure
// event after which the stream ends. Closing the connection cancels every
// in-flight fetch.
package searchapi
