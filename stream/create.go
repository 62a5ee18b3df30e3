package stream

import (
	"context"
	"fmt"

	"github.com/kbukum/flightsearch/errors"
)

// Option configures sources built by FromFunc and FromCall.
type Option func(*options)

type options struct {
	runner Runner
}

// WithRunner runs the producer on r instead of a fresh goroutine.
func WithRunner(r Runner) Option {
	return func(o *options) { o.runner = r }
}

func applyOptions(opts []Option) options {
	o := options{runner: goRunner{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Producer emits values through emit and returns nil to complete or an
// error to fail. emit returns false once the subscriber is gone; the
// producer should stop then. ctx is cancelled when the subscription closes.
type Producer[T any] func(ctx context.Context, emit func(T) bool) error

// FromFunc returns a cold source: every Subscribe runs produce once on the
// configured runner.
func FromFunc[T any](produce Producer[T], opts ...Option) Source[T] {
	o := applyOptions(opts)
	return SourceFunc[T](func(ctx context.Context, obs Observer[T]) *Subscription {
		sub := NewSubscription()
		if ctx.Err() != nil {
			sub.Cancel()
			return sub
		}
		pctx, cancel := context.WithCancel(ctx)
		sub.OnClose(cancel)
		bind(ctx, sub)

		o.runner.Go(pctx, func(pctx context.Context) {
			defer func() {
				if r := recover(); r != nil {
					if sub.Terminate() {
						obs.err(errors.Internal(fmt.Errorf("producer panicked: %v", r)))
					}
				}
			}()
			emit := func(v T) bool {
				if sub.Closed() {
					return false
				}
				obs.value(v)
				return !sub.Closed()
			}
			if err := produce(pctx, emit); err != nil {
				if ctx.Err() != nil {
					// The subscriber went away; that is not a failure.
					sub.Cancel()
					return
				}
				if sub.Terminate() {
					obs.err(err)
				}
				return
			}
			if sub.Terminate() {
				obs.complete()
			}
		})
		return sub
	})
}

// FromCall returns a source that emits the single result of fn.
func FromCall[T any](fn func(ctx context.Context) (T, error), opts ...Option) Source[T] {
	return FromFunc(func(ctx context.Context, emit func(T) bool) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		emit(v)
		return nil
	}, opts...)
}

// Just emits vs and completes synchronously inside Subscribe.
func Just[T any](vs ...T) Source[T] {
	return SourceFunc[T](func(ctx context.Context, obs Observer[T]) *Subscription {
		sub := NewSubscription()
		if ctx.Err() != nil {
			sub.Cancel()
			return sub
		}
		for _, v := range vs {
			if sub.Closed() {
				return sub
			}
			obs.value(v)
		}
		if sub.Terminate() {
			obs.complete()
		}
		return sub
	})
}

// Fail fails synchronously with err.
func Fail[T any](err error) Source[T] {
	return SourceFunc[T](func(ctx context.Context, obs Observer[T]) *Subscription {
		sub := NewSubscription()
		if ctx.Err() != nil {
			sub.Cancel()
			return sub
		}
		if sub.Terminate() {
			obs.err(err)
		}
		return sub
	})
}

// Empty completes synchronously without values.
func Empty[T any]() Source[T] {
	return Just[T]()
}

// bind cancels sub when ctx is done, and releases the context watch once
// sub closes.
func bind(ctx context.Context, sub *Subscription) {
	stop := context.AfterFunc(ctx, sub.Cancel)
	sub.OnClose(func() { stop() })
}
