package affinity

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/flightsearch/errors"
	"github.com/kbukum/flightsearch/logger"
)

// Executor runs tasks serially on one goroutine. The queue is unbounded;
// Schedule never blocks.
type Executor struct {
	name string
	log  *logger.Logger

	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}
	done chan struct{}
}

// New starts an executor. Close must be called to stop its goroutine.
func New(name string) *Executor {
	e := &Executor{
		name: name,
		log:  logger.Get("affinity").WithFields(logger.Fields("executor", name)),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go e.loop()
	return e
}

// Schedule enqueues task. It returns false, dropping the task, once the
// executor is closed.
func (e *Executor) Schedule(task func()) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	e.queue = append(e.queue, task)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return true
}

// Call runs fn on the executor and waits for it. It must not be called
// from a task running on the same executor.
func (e *Executor) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !e.Schedule(func() {
		defer close(finished)
		fn()
	}) {
		return errors.Cancelled("affinity." + e.name)
	}
	select {
	case <-finished:
		return nil
	case <-e.done:
		select {
		case <-finished:
			return nil
		default:
			return errors.Cancelled("affinity." + e.name)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the executor. Tasks still queued are discarded; a task
// already running finishes. Close does not wait; use Done for that.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	dropped := len(e.queue)
	e.queue = nil
	e.mu.Unlock()

	if dropped > 0 {
		e.log.Debug("executor closed with pending tasks", logger.Fields(logger.FieldCount, dropped))
	}
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Done is closed once the executor goroutine has exited.
func (e *Executor) Done() <-chan struct{} { return e.done }

func (e *Executor) loop() {
	defer close(e.done)
	for {
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return
		}
		if len(e.queue) == 0 {
			e.mu.Unlock()
			<-e.wake
			continue
		}
		task := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()

		e.run(task)
	}
}

func (e *Executor) run(task func()) {
	defer func() {
		if p := recover(); p != nil {
			e.log.Error("task panicked", logger.Fields(logger.FieldError, fmt.Sprint(p)))
		}
	}()
	task()
}
