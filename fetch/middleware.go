package fetch

import (
	"context"
	stderrors "errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/kbukum/flightsearch/errors"
	"github.com/kbukum/flightsearch/logger"
	"github.com/kbukum/flightsearch/observability"
)

type wrapped[I, O any] struct {
	inner Fetcher[I, O]
	fetch func(ctx context.Context, in I) (O, error)
}

func (w *wrapped[I, O]) Name() string { return w.inner.Name() }

func (w *wrapped[I, O]) Fetch(ctx context.Context, in I) (O, error) {
	return w.fetch(ctx, in)
}

// WithLogging logs every call with its duration. Failures are logged at
// error level unless the context was cancelled.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return func(inner Fetcher[I, O]) Fetcher[I, O] {
		return &wrapped[I, O]{inner: inner, fetch: func(ctx context.Context, in I) (O, error) {
			start := time.Now()
			out, err := inner.Fetch(ctx, in)
			fields := logger.DurationFields(inner.Name(), time.Since(start))

			switch {
			case err == nil:
				log.Debug("fetch ok", fields)
			case ctx.Err() != nil:
				log.Debug("fetch cancelled", fields)
			default:
				fields[logger.FieldError] = err.Error()
				log.WithContext(ctx).Error("fetch failed", fields)
			}
			return out, err
		}}
	}
}

// WithTracing wraps every call in a span named SpanFetch.
func WithTracing[I, O any]() Middleware[I, O] {
	return func(inner Fetcher[I, O]) Fetcher[I, O] {
		return &wrapped[I, O]{inner: inner, fetch: func(ctx context.Context, in I) (O, error) {
			ctx, span := observability.StartSpan(ctx, observability.SpanFetch)
			defer span.End()
			span.SetAttributes(attribute.String(observability.AttrFetcher, inner.Name()))

			out, err := inner.Fetch(ctx, in)
			span.SetAttributes(attribute.String(observability.AttrOutcome, outcome(ctx, err)))
			if err != nil && ctx.Err() == nil {
				observability.SetSpanError(span, err)
			}
			return out, err
		}}
	}
}

// WithMetrics records a count and latency per call. A nil m records
// nothing.
func WithMetrics[I, O any](m *observability.PipelineMetrics) Middleware[I, O] {
	return func(inner Fetcher[I, O]) Fetcher[I, O] {
		return &wrapped[I, O]{inner: inner, fetch: func(ctx context.Context, in I) (O, error) {
			start := time.Now()
			out, err := inner.Fetch(ctx, in)
			m.RecordFetch(ctx, inner.Name(), outcome(ctx, err), time.Since(start))
			return out, err
		}}
	}
}

// WithRateLimit waits on l before every call. A wait cut short by the
// context fails with the context's error; a wait that could never be
// satisfied fails with RATE_LIMITED.
func WithRateLimit[I, O any](l *rate.Limiter) Middleware[I, O] {
	return func(inner Fetcher[I, O]) Fetcher[I, O] {
		return &wrapped[I, O]{inner: inner, fetch: func(ctx context.Context, in I) (O, error) {
			if err := l.Wait(ctx); err != nil {
				var zero O
				if ctx.Err() != nil {
					return zero, ctx.Err()
				}
				return zero, errors.RateLimited().WithCause(err)
			}
			return inner.Fetch(ctx, in)
		}}
	}
}

func outcome(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.IsCode(err, errors.ErrCodeTimeout), stderrors.Is(err, context.DeadlineExceeded):
		return observability.OutcomeTimeout
	case ctx.Err() != nil:
		return observability.OutcomeCanceled
	default:
		return observability.OutcomeError
	}
}
