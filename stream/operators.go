package stream

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/flightsearch/errors"
)

// Map transforms every value of src with f.
func Map[T, U any](src Source[T], f func(T) U) Source[U] {
	return SourceFunc[U](func(ctx context.Context, obs Observer[U]) *Subscription {
		return src.Subscribe(ctx, Observer[T]{
			OnValue:    func(v T) { obs.value(f(v)) },
			OnError:    obs.err,
			OnComplete: obs.complete,
		})
	})
}

// ObserveOn delivers src's signals through sched. Each delivery checks the
// returned subscription when it runs, not when it was scheduled, so a
// delivery queued before Cancel is dropped. If sched rejects a task the
// subscription is cancelled.
func ObserveOn[T any](src Source[T], sched Scheduler) Source[T] {
	return SourceFunc[T](func(ctx context.Context, obs Observer[T]) *Subscription {
		outer := NewSubscription()
		if ctx.Err() != nil {
			outer.Cancel()
			return outer
		}
		bind(ctx, outer)

		deliver := func(task func()) {
			if !sched.Schedule(task) {
				outer.Cancel()
			}
		}
		inner := src.Subscribe(ctx, Observer[T]{
			OnValue: func(v T) {
				deliver(func() {
					if !outer.Closed() {
						obs.value(v)
					}
				})
			},
			OnError: func(err error) {
				deliver(func() {
					if outer.Terminate() {
						obs.err(err)
					}
				})
			},
			OnComplete: func() {
				deliver(func() {
					if outer.Terminate() {
						obs.complete()
					}
				})
			},
		})
		outer.OnClose(inner.Cancel)
		return outer
	})
}

// Timeout fails with a TIMEOUT AppError if src has not terminated within
// d of Subscribe. The upstream subscription is cancelled on expiry.
func Timeout[T any](src Source[T], d time.Duration) Source[T] {
	return SourceFunc[T](func(ctx context.Context, obs Observer[T]) *Subscription {
		outer := NewSubscription()
		if ctx.Err() != nil {
			outer.Cancel()
			return outer
		}
		bind(ctx, outer)

		var mu sync.Mutex
		timer := time.AfterFunc(d, func() {
			mu.Lock()
			defer mu.Unlock()
			if outer.Terminate() {
				obs.err(errors.Timeout("stream").WithDetail("after", d.String()))
			}
		})
		outer.OnClose(func() { timer.Stop() })

		inner := src.Subscribe(ctx, Observer[T]{
			OnValue: func(v T) {
				mu.Lock()
				defer mu.Unlock()
				if !outer.Closed() {
					obs.value(v)
				}
			},
			OnError: func(err error) {
				mu.Lock()
				defer mu.Unlock()
				if outer.Terminate() {
					obs.err(err)
				}
			},
			OnComplete: func() {
				mu.Lock()
				defer mu.Unlock()
				if outer.Terminate() {
					obs.complete()
				}
			},
		})
		outer.OnClose(inner.Cancel)
		return outer
	})
}

// Collect subscribes to src and blocks until it terminates, returning every
// value. Cancelling ctx cancels the subscription and returns ctx.Err().
func Collect[T any](ctx context.Context, src Source[T]) ([]T, error) {
	var (
		mu   sync.Mutex
		vals []T
		err  error
	)
	terminal := make(chan struct{})
	sub := src.Subscribe(ctx, Observer[T]{
		OnValue: func(v T) {
			mu.Lock()
			vals = append(vals, v)
			mu.Unlock()
		},
		OnError: func(e error) {
			mu.Lock()
			err = e
			mu.Unlock()
			close(terminal)
		},
		OnComplete: func() { close(terminal) },
	})
	select {
	case <-terminal:
	case <-ctx.Done():
		sub.Cancel()
		return nil, ctx.Err()
	}
	mu.Lock()
	defer mu.Unlock()
	return vals, err
}
