// Package search wires a flight search session: the shared ticket
// listing, per-ticket price enrichment and the executor that owns the
// ticket store.
package search
