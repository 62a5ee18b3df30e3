// Package server hosts HTTP handlers on Gin, served over HTTP/1.1 and h2c.
//
// The standard stack is recovery, request IDs and request logging, plus
// two endpoints:
//
//   - /health: aggregated observability.HealthChecker status
//   - /version: build information
package server
