package multicast

import (
	"context"
	"slices"
	"sync"

	"github.com/kbukum/flightsearch/logger"
	"github.com/kbukum/flightsearch/stream"
)

// DefaultBufferLimit bounds the replay buffer unless WithBufferLimit says
// otherwise.
const DefaultBufferLimit = 1024

// State is the lifecycle of a Replay.
type State int32

const (
	Idle State = iota
	Active
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Option configures a Replay.
type Option func(*options)

type options struct {
	limit int
	name  string
}

// WithBufferLimit keeps at most n values for replay, evicting the oldest.
// A subscriber that falls more than n values behind, or joins after
// eviction started, skips the evicted values. n <= 0 means unbounded.
func WithBufferLimit(n int) Option {
	return func(o *options) { o.limit = n }
}

// WithName labels the Replay in logs.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Replay is a connectable, replaying multicast over a stream.Source.
type Replay[T any] struct {
	src   stream.Source[T]
	limit int
	log   *logger.Logger

	mu      sync.Mutex
	state   State
	buf     []T
	base    int // absolute position of buf[0]
	err     error
	subs    []*subscriber[T]
	conn    *stream.Subscription
	evicted bool
}

// New wraps src. Nothing happens until Connect.
func New[T any](src stream.Source[T], opts ...Option) *Replay[T] {
	o := options{limit: DefaultBufferLimit, name: "replay"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Replay[T]{
		src:   src,
		limit: o.limit,
		log:   logger.Get("multicast").WithFields(logger.Fields("source", o.name)),
	}
}

// Connect subscribes to the upstream source. Only the first call does
// anything; every call returns the same connection handle. Cancelling the
// handle, or ctx of the first call, cancels the upstream subscription and
// stops further values; subscribers are not sent a terminal signal.
func (r *Replay[T]) Connect(ctx context.Context) *stream.Subscription {
	r.mu.Lock()
	if r.conn != nil {
		conn := r.conn
		r.mu.Unlock()
		return conn
	}
	conn := stream.NewSubscription()
	r.conn = conn
	r.state = Active
	r.mu.Unlock()

	r.log.Debug("connecting upstream", logger.Fields(logger.FieldSubscriber, conn.ID()))
	stop := context.AfterFunc(ctx, conn.Cancel)
	conn.OnClose(func() { stop() })

	up := r.src.Subscribe(ctx, stream.Observer[T]{
		OnValue:    r.push,
		OnError:    func(err error) { r.finish(Failed, err) },
		OnComplete: func() { r.finish(Completed, nil) },
	})
	conn.OnClose(up.Cancel)
	return conn
}

// Subscribe registers obs. Buffered values are replayed synchronously, in
// order, before Subscribe returns; live values follow on the upstream's
// goroutine, handed to subscribers in the order they subscribed. A
// terminal signal already recorded is delivered after the replay. obs must
// not call back into this Replay's upstream.
func (r *Replay[T]) Subscribe(ctx context.Context, obs stream.Observer[T]) *stream.Subscription {
	s := &subscriber[T]{obs: obs, sub: stream.NewSubscription()}
	if ctx.Err() != nil {
		s.sub.Cancel()
		return s.sub
	}

	r.mu.Lock()
	s.next = r.base
	r.subs = append(r.subs, s)
	r.mu.Unlock()

	s.sub.OnClose(func() {
		r.mu.Lock()
		r.subs = slices.DeleteFunc(r.subs, func(x *subscriber[T]) bool { return x == s })
		r.mu.Unlock()
	})
	stop := context.AfterFunc(ctx, s.sub.Cancel)
	s.sub.OnClose(func() { stop() })

	s.drain(r)
	return s.sub
}

// State returns the current lifecycle state.
func (r *Replay[T]) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Buffered returns the number of values held for replay.
func (r *Replay[T]) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// Subscribers returns the number of open subscriptions.
func (r *Replay[T]) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *Replay[T]) push(v T) {
	r.mu.Lock()
	if r.state != Active || r.conn.Cancelled() {
		r.mu.Unlock()
		return
	}
	r.buf = append(r.buf, v)
	if r.limit > 0 && len(r.buf) > r.limit {
		drop := len(r.buf) - r.limit
		r.buf = r.buf[drop:]
		r.base += drop
		if !r.evicted {
			r.evicted = true
			r.log.Warn("replay buffer full, evicting oldest values", logger.Fields("limit", r.limit))
		}
	}
	subs := r.snapshot()
	r.mu.Unlock()

	for _, s := range subs {
		s.drain(r)
	}
}

func (r *Replay[T]) finish(state State, err error) {
	r.mu.Lock()
	if r.state != Active {
		r.mu.Unlock()
		return
	}
	r.state = state
	r.err = err
	subs := r.snapshot()
	conn := r.conn
	r.mu.Unlock()

	if err != nil {
		r.log.Debug("upstream failed", logger.ErrorFields("upstream", err))
	}
	conn.Terminate()
	for _, s := range subs {
		s.drain(r)
	}
}

func (r *Replay[T]) snapshot() []*subscriber[T] {
	return slices.Clone(r.subs)
}

// subscriber tracks one consumer's position in the replay buffer. mu
// serializes deliveries to the consumer.
type subscriber[T any] struct {
	obs  stream.Observer[T]
	sub  *stream.Subscription
	mu   sync.Mutex
	next int
}

// drain delivers everything from s.next to the end of the buffer, then
// the terminal signal once the buffer is exhausted and the Replay is done.
func (s *subscriber[T]) drain(r *Replay[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if s.sub.Closed() {
			return
		}
		r.mu.Lock()
		if s.next < r.base {
			s.next = r.base
		}
		pending := slices.Clone(r.buf[s.next-r.base:])
		state, err := r.state, r.err
		r.mu.Unlock()

		if len(pending) == 0 {
			if (state == Completed || state == Failed) && s.sub.Terminate() {
				if state == Failed {
					if s.obs.OnError != nil {
						s.obs.OnError(err)
					}
				} else if s.obs.OnComplete != nil {
					s.obs.OnComplete()
				}
			}
			return
		}
		for _, v := range pending {
			if s.sub.Closed() {
				return
			}
			if s.obs.OnValue != nil {
				s.obs.OnValue(v)
			}
			s.next++
		}
	}
}
