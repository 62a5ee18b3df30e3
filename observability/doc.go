// Package observability wires OpenTelemetry tracing and metrics.
//
// Setup installs OTLP/HTTP exporters when enabled. PipelineMetrics holds
// the counters and histograms recorded by fetchers and the enrichment
// coordinator; a nil *PipelineMetrics is valid and records nothing.
package observability
