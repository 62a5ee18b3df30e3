// Package enrich coordinates the two phases of a search: a listing from
// the primary source replaces the store, then each record is enriched by
// its own secondary fetch and merged back by identity.
package enrich
