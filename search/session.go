package search

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/flightsearch/affinity"
	"github.com/kbukum/flightsearch/disposal"
	"github.com/kbukum/flightsearch/enrich"
	"github.com/kbukum/flightsearch/errors"
	"github.com/kbukum/flightsearch/fetch"
	"github.com/kbukum/flightsearch/flights"
	"github.com/kbukum/flightsearch/logger"
	"github.com/kbukum/flightsearch/multicast"
	"github.com/kbukum/flightsearch/observability"
	"github.com/kbukum/flightsearch/store"
	"github.com/kbukum/flightsearch/stream"
	"github.com/kbukum/flightsearch/worker"
)

// Option configures Open.
type Option func(*sessionOptions)

type sessionOptions struct {
	metrics *observability.PipelineMetrics
}

// WithMetrics records pipeline metrics for the session.
func WithMetrics(m *observability.PipelineMetrics) Option {
	return func(o *sessionOptions) { o.metrics = m }
}

// Session is one flight search: the ticket listing fetched once and shared,
// then every ticket priced concurrently and merged back in place.
//
// The listener is called on the session's executor. Snapshot and Select
// read the store there too, so they are safe from any goroutine.
type Session struct {
	id       string
	query    flights.Query
	exec     *affinity.Executor
	pool     *worker.Pool
	store    *store.Store[flights.Key, flights.Ticket]
	replay   *multicast.Replay[[]flights.Ticket]
	coord    *enrich.Coordinator[flights.Key, flights.Ticket]
	registry *disposal.Registry
	log      *logger.Logger
}

// Open validates q and cfg, then starts the search. Cancelling ctx has the
// same effect as Close.
func Open(
	ctx context.Context,
	q flights.Query,
	tickets fetch.Fetcher[flights.Query, []flights.Ticket],
	prices fetch.Fetcher[flights.Ticket, flights.Ticket],
	listener enrich.Listener[flights.Ticket],
	cfg Config,
	opts ...Option,
) (*Session, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.NewString()
	ctx, span := observability.StartSpan(ctx, observability.SpanSearch)
	defer span.End()
	span.SetAttributes(
		attribute.String("search.id", id),
		attribute.String("search.from", q.From),
		attribute.String("search.to", q.To),
	)

	s := &Session{
		id:       id,
		query:    q,
		exec:     affinity.New("search"),
		pool:     worker.New(worker.Config{Name: "fetch", MaxConcurrent: cfg.Workers}),
		store:    store.New(flights.KeyOf),
		registry: disposal.New("search"),
		log:      logger.Get("search").WithFields(logger.Fields("search", id, "from", q.From, "to", q.To)),
	}

	stop := context.AfterFunc(ctx, s.Close)
	ctx, cancel := context.WithCancel(ctx)
	// Cancelled in reverse: connection, coordinator, ctx hook, context,
	// executor.
	s.registry.Register(disposal.Func(s.exec.Close))
	s.registry.Register(disposal.Func(cancel))
	s.registry.Register(disposal.Func(func() { stop() }))

	var replayOpts []multicast.Option
	switch {
	case cfg.ReplayLimit > 0:
		replayOpts = append(replayOpts, multicast.WithBufferLimit(cfg.ReplayLimit))
	case cfg.ReplayLimit < 0:
		replayOpts = append(replayOpts, multicast.WithBufferLimit(0))
	}
	replayOpts = append(replayOpts, multicast.WithName("tickets"))
	run := stream.WithRunner(s.pool)
	s.replay = multicast.New(fetch.Source(tickets, q, run), replayOpts...)

	s.coord = enrich.New(s.store, s.exec, listener, cfg.Enrichment, enrich.WithMetrics(o.metrics))
	if err := s.coord.Start(ctx, s.replay, fetch.Bind(prices, run)); err != nil {
		s.registry.CancelAll()
		observability.SetSpanError(span, err)
		return nil, err
	}
	s.registry.Register(s.coord)
	s.registry.Register(s.replay.Connect(ctx))

	s.log.Info("search opened", logger.Fields(logger.FieldPolicy, string(cfg.Enrichment.Policy)))
	return s, nil
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Query returns the searched route.
func (s *Session) Query() flights.Query { return s.query }

// Snapshot returns the tickets in listing order.
func (s *Session) Snapshot(ctx context.Context) ([]flights.Ticket, error) {
	var out []flights.Ticket
	err := s.onStore(ctx, func() { out = s.store.Snapshot() })
	return out, err
}

// Select returns the ticket with key k as currently stored.
func (s *Session) Select(ctx context.Context, k flights.Key) (flights.Ticket, error) {
	var (
		t  flights.Ticket
		ok bool
	)
	if err := s.onStore(ctx, func() { t, ok = s.store.Get(k) }); err != nil {
		return flights.Ticket{}, err
	}
	if !ok {
		return flights.Ticket{}, errors.IdentityNotFound(k.String())
	}
	s.log.Debug("ticket selected", logger.Fields(logger.FieldIdentity, k.String()))
	return t, nil
}

// onStore runs fn on the executor, or directly once the executor has
// exited and nothing can write the store any more.
func (s *Session) onStore(ctx context.Context, fn func()) error {
	err := s.exec.Call(ctx, fn)
	if err == nil || ctx.Err() != nil {
		return err
	}
	select {
	case <-s.exec.Done():
		fn()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels every in-flight fetch and stops delivery to the listener.
// Tickets already priced stay readable through Snapshot. Safe to call more
// than once.
func (s *Session) Close() {
	if s.registry.Cancelled() {
		return
	}
	s.registry.CancelAll()
	s.log.Debug("search closed")
}

// Wait blocks until every fetch goroutine has returned.
func (s *Session) Wait() {
	s.pool.Wait()
}
