// Package mockapi serves a deterministic flights API for local runs and
// tests, with configurable latency and failure injection.
package mockapi
