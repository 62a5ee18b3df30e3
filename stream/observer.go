package stream

import "context"

// Observer receives a source's signals. Nil callbacks are skipped. A
// source never calls an Observer concurrently with itself.
type Observer[T any] struct {
	OnValue    func(T)
	OnError    func(error)
	OnComplete func()
}

func (o Observer[T]) value(v T) {
	if o.OnValue != nil {
		o.OnValue(v)
	}
}

func (o Observer[T]) err(err error) {
	if o.OnError != nil {
		o.OnError(err)
	}
}

func (o Observer[T]) complete() {
	if o.OnComplete != nil {
		o.OnComplete()
	}
}

// Source produces values for each subscriber. Cancelling ctx cancels the
// returned subscription.
type Source[T any] interface {
	Subscribe(ctx context.Context, obs Observer[T]) *Subscription
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func(ctx context.Context, obs Observer[T]) *Subscription

func (f SourceFunc[T]) Subscribe(ctx context.Context, obs Observer[T]) *Subscription {
	return f(ctx, obs)
}

// Scheduler runs tasks on some execution context. Schedule returns false
// when the task was rejected.
type Scheduler interface {
	Schedule(task func()) bool
}

type immediate struct{}

func (immediate) Schedule(task func()) bool {
	task()
	return true
}

// Immediate runs tasks inline on the calling goroutine.
var Immediate Scheduler = immediate{}

// Runner starts producers. *worker.Pool satisfies it.
type Runner interface {
	Go(ctx context.Context, task func(ctx context.Context))
}

type goRunner struct{}

func (goRunner) Go(ctx context.Context, task func(ctx context.Context)) {
	go task(ctx)
}
