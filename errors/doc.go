// Package errors provides the structured error type shared by the search
// pipeline, the flights client and the mock flight API.
//
// Every failure that crosses a component boundary is an *AppError carrying a
// machine-readable code. Pipeline failures use PRIMARY_FETCH_FAILED and
// ENRICHMENT_FAILED; a stale enrichment result uses IDENTITY_NOT_FOUND and is
// never fatal. HTTP status mapping follows RFC 7807 so the mock API can render
// the same values it receives.
package errors
