package stream

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Subscription is one consumer's registration with a source. It closes
// exactly once, either by Cancel or by the source delivering its terminal
// signal.
type Subscription struct {
	id        string
	closed    atomic.Bool
	cancelled atomic.Bool
	done      chan struct{}

	mu    sync.Mutex
	hooks []func()
}

// NewSubscription returns an open subscription.
func NewSubscription() *Subscription {
	return &Subscription{id: uuid.NewString(), done: make(chan struct{})}
}

// ID is a unique identifier for logs.
func (s *Subscription) ID() string { return s.id }

// Cancel closes the subscription without a terminal signal. It is safe to
// call any number of times and after the subscription has terminated.
func (s *Subscription) Cancel() {
	if s.close(true) {
		s.runHooks()
	}
}

// Cancelled reports whether the subscription was closed by Cancel.
func (s *Subscription) Cancelled() bool { return s.cancelled.Load() }

// Closed reports whether the subscription is closed for any reason.
// Deliveries check it immediately before calling the observer.
func (s *Subscription) Closed() bool { return s.closed.Load() }

// Done is closed when the subscription closes.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// OnClose registers f to run once when the subscription closes. If it is
// already closed, f runs immediately.
func (s *Subscription) OnClose(f func()) {
	s.mu.Lock()
	if !s.closed.Load() {
		s.hooks = append(s.hooks, f)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	f()
}

// Terminate closes the subscription on behalf of a terminal signal. It
// returns true only for the call that closed it; the caller then delivers
// the signal.
func (s *Subscription) Terminate() bool {
	if s.close(false) {
		s.runHooks()
		return true
	}
	return false
}

func (s *Subscription) close(byCancel bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	if byCancel {
		s.cancelled.Store(true)
	}
	s.closed.Store(true)
	close(s.done)
	return true
}

func (s *Subscription) runHooks() {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()
	for _, f := range hooks {
		f()
	}
}
