package fetch

import (
	"context"

	"github.com/kbukum/flightsearch/stream"
)

// Fetcher performs one request/response call against a backend.
type Fetcher[I, O any] interface {
	// Name identifies the fetcher in logs, spans and metrics.
	Name() string
	Fetch(ctx context.Context, in I) (O, error)
}

// Func adapts a function to Fetcher.
type Func[I, O any] struct {
	name string
	fn   func(ctx context.Context, in I) (O, error)
}

// NewFunc returns a Fetcher named name that calls fn.
func NewFunc[I, O any](name string, fn func(ctx context.Context, in I) (O, error)) *Func[I, O] {
	return &Func[I, O]{name: name, fn: fn}
}

func (f *Func[I, O]) Name() string { return f.name }

func (f *Func[I, O]) Fetch(ctx context.Context, in I) (O, error) {
	return f.fn(ctx, in)
}

// Middleware wraps a Fetcher with cross-cutting behavior.
type Middleware[I, O any] func(Fetcher[I, O]) Fetcher[I, O]

// Chain composes middlewares. The first one is outermost:
// Chain(a, b, c)(f) is a(b(c(f))).
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	return func(inner Fetcher[I, O]) Fetcher[I, O] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}

// Source returns a cold single-value source that calls f with in on
// every Subscribe. The call's context is cancelled with the subscription.
func Source[I, O any](f Fetcher[I, O], in I, opts ...stream.Option) stream.Source[O] {
	return stream.FromCall(func(ctx context.Context) (O, error) {
		return f.Fetch(ctx, in)
	}, opts...)
}

// Bind returns a function that builds a Source per input. It has the shape
// the enrichment coordinator expects for its secondary fetch.
func Bind[I, O any](f Fetcher[I, O], opts ...stream.Option) func(I) stream.Source[O] {
	return func(in I) stream.Source[O] {
		return Source(f, in, opts...)
	}
}
