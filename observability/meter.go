package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/flightsearch/logger"
)

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
func InitMeter(ctx context.Context, cfg Config, serviceName, serviceVersion string) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(serviceName, serviceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Meter returns the module meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Outcome values recorded on fetch and enrichment instruments.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeCanceled = "canceled"
)

// PipelineMetrics holds the instruments recorded by fetchers and the
// enrichment coordinator. A nil *PipelineMetrics records nothing.
type PipelineMetrics struct {
	fetchTotal       metric.Int64Counter
	fetchDuration    metric.Float64Histogram
	enrichUpdates    metric.Int64Counter
	enrichMisses     metric.Int64Counter
	pipelineFailures metric.Int64Counter
	roundsStarted    metric.Int64Counter
}

// NewPipelineMetrics creates the instruments on meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	fetchTotal, err := meter.Int64Counter("fetch.total",
		metric.WithDescription("Fetches by fetcher and outcome"))
	if err != nil {
		return nil, fmt.Errorf("creating fetch.total counter: %w", err)
	}
	fetchDuration, err := meter.Float64Histogram("fetch.duration",
		metric.WithDescription("Fetch latency"), metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating fetch.duration histogram: %w", err)
	}
	enrichUpdates, err := meter.Int64Counter("enrich.updates",
		metric.WithDescription("Records merged after a secondary fetch"))
	if err != nil {
		return nil, fmt.Errorf("creating enrich.updates counter: %w", err)
	}
	enrichMisses, err := meter.Int64Counter("enrich.misses",
		metric.WithDescription("Secondary results whose identity was no longer stored"))
	if err != nil {
		return nil, fmt.Errorf("creating enrich.misses counter: %w", err)
	}
	pipelineFailures, err := meter.Int64Counter("pipeline.failures",
		metric.WithDescription("Failures surfaced to the listener, by stage"))
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.failures counter: %w", err)
	}
	roundsStarted, err := meter.Int64Counter("enrich.rounds",
		metric.WithDescription("Enrichment rounds started"))
	if err != nil {
		return nil, fmt.Errorf("creating enrich.rounds counter: %w", err)
	}
	return &PipelineMetrics{
		fetchTotal:       fetchTotal,
		fetchDuration:    fetchDuration,
		enrichUpdates:    enrichUpdates,
		enrichMisses:     enrichMisses,
		pipelineFailures: pipelineFailures,
		roundsStarted:    roundsStarted,
	}, nil
}

// RecordFetch records one completed fetch.
func (m *PipelineMetrics) RecordFetch(ctx context.Context, fetcher, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrFetcher, fetcher),
		attribute.String(AttrOutcome, outcome),
	))
	m.fetchDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(AttrFetcher, fetcher)))
}

// RecordRound counts a started enrichment round.
func (m *PipelineMetrics) RecordRound(ctx context.Context, policy string) {
	if m == nil {
		return
	}
	m.roundsStarted.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrPolicy, policy)))
}

// RecordUpdate counts a merged secondary result.
func (m *PipelineMetrics) RecordUpdate(ctx context.Context) {
	if m == nil {
		return
	}
	m.enrichUpdates.Add(ctx, 1)
}

// RecordMiss counts a secondary result with no matching record.
func (m *PipelineMetrics) RecordMiss(ctx context.Context) {
	if m == nil {
		return
	}
	m.enrichMisses.Add(ctx, 1)
}

// RecordFailure counts a failure surfaced for stage.
func (m *PipelineMetrics) RecordFailure(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.pipelineFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
