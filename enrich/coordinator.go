package enrich

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/flightsearch/disposal"
	"github.com/kbukum/flightsearch/errors"
	"github.com/kbukum/flightsearch/logger"
	"github.com/kbukum/flightsearch/observability"
	"github.com/kbukum/flightsearch/store"
	"github.com/kbukum/flightsearch/stream"
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = stderrors.New("enrich: coordinator already started")

// Option configures a Coordinator.
type Option func(*coordinatorOptions)

type coordinatorOptions struct {
	metrics *observability.PipelineMetrics
	log     *logger.Logger
}

// WithMetrics records round, update, miss and failure counts.
func WithMetrics(m *observability.PipelineMetrics) Option {
	return func(o *coordinatorOptions) { o.metrics = m }
}

// WithLogger replaces the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *coordinatorOptions) { o.log = l }
}

// Coordinator runs the two-phase pipeline: each collection emitted by the
// primary source replaces the store, then every record is enriched by its
// own secondary source and merged back by identity.
//
// All store access and listener calls happen on sched. The fields below
// the divider are only touched from there.
type Coordinator[K comparable, R any] struct {
	store    *store.Store[K, R]
	sched    stream.Scheduler
	listener Listener[R]
	cfg      Config
	metrics  *observability.PipelineMetrics
	log      *logger.Logger
	registry *disposal.Registry
	started  atomic.Bool

	// scheduler-confined
	failed    bool
	listSeq   uint64
	fanSeq    uint64
	appliedTo uint64
	round     *round
}

type round struct {
	id      string
	reg     *disposal.Registry
	key     disposal.Key
	span    trace.Span
	pending int
	summary RoundSummary
	done    bool
}

// New creates a coordinator over st. sched must run tasks one at a time,
// in order; an *affinity.Executor does.
func New[K comparable, R any](st *store.Store[K, R], sched stream.Scheduler, listener Listener[R], cfg Config, opts ...Option) *Coordinator[K, R] {
	cfg.ApplyDefaults()
	o := coordinatorOptions{log: logger.Get("enrich")}
	for _, opt := range opts {
		opt(&o)
	}
	return &Coordinator[K, R]{
		store:    st,
		sched:    sched,
		listener: listener,
		cfg:      cfg,
		metrics:  o.metrics,
		log:      o.log.WithFields(logger.Fields(logger.FieldPolicy, string(cfg.Policy))),
		registry: disposal.New("enrich"),
	}
}

// Start subscribes two consumers to primary: one applies each collection
// to the store, the other fans out secondary(record) for every record.
// primary should be shared (see package multicast) since it is
// subscribed twice. Cancelling ctx is equivalent to Stop.
func (c *Coordinator[K, R]) Start(ctx context.Context, primary stream.Source[[]R], secondary func(R) stream.Source[R]) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	listing := stream.ObserveOn(primary, c.sched).Subscribe(ctx, stream.Observer[[]R]{
		OnValue: c.onListing,
		OnError: c.onPrimaryError,
	})
	c.registry.Register(listing)

	fanout := stream.ObserveOn(primary, c.sched).Subscribe(ctx, stream.Observer[[]R]{
		OnValue: func(records []R) { c.onFanOut(ctx, records, secondary) },
		OnError: c.onPrimaryError,
	})
	c.registry.Register(fanout)

	c.log.Debug("coordinator started")
	return nil
}

// Stop cancels the primary subscriptions and every outstanding per-item
// fetch. Deliveries already queued on the scheduler are dropped. Safe to
// call from any goroutine, any number of times.
func (c *Coordinator[K, R]) Stop() {
	c.registry.CancelAll()
}

// Cancel implements disposal.Handle.
func (c *Coordinator[K, R]) Cancel() { c.Stop() }

func (c *Coordinator[K, R]) onListing(records []R) {
	if c.failed {
		return
	}
	c.listSeq++
	c.apply(c.listSeq, records)
}

// apply replaces the store with the seq-th collection unless the other
// consumer already did. Results of the open round are stale from here on.
func (c *Coordinator[K, R]) apply(seq uint64, records []R) {
	if seq <= c.appliedTo {
		return
	}
	c.appliedTo = seq
	if rd := c.round; rd != nil && !rd.done {
		c.closeRound(rd, "superseded")
	}
	if dropped := c.store.ReplaceAll(records); dropped > 0 {
		c.log.Warn("duplicate identities dropped from listing", logger.Fields(logger.FieldCount, dropped))
	}
	c.listener.OnReset(c.store.View())
}

func (c *Coordinator[K, R]) onFanOut(ctx context.Context, records []R, secondary func(R) stream.Source[R]) {
	if c.failed || c.registry.Cancelled() {
		return
	}
	c.fanSeq++
	c.apply(c.fanSeq, records)
	if prev := c.round; prev != nil && !prev.done {
		c.closeRound(prev, "superseded")
	}
	if c.fanSeq < c.appliedTo {
		// A newer listing is already in the store; its own round follows.
		return
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanEnrich)
	rd := &round{
		id:   uuid.NewString(),
		reg:  disposal.New("round"),
		span: span,
	}
	key, ok := c.registry.Register(rd.reg)
	if !ok {
		span.End()
		return
	}
	rd.key = key
	rd.summary.Round = rd.id
	c.round = rd
	c.metrics.RecordRound(ctx, string(c.cfg.Policy))

	// Fan out over the applied listing so duplicates are not fetched twice.
	items := c.store.Snapshot()
	rd.pending = len(items)
	rd.summary.Items = len(items)
	span.SetAttributes(
		attribute.String(observability.AttrRound, rd.id),
		attribute.Int(observability.AttrItems, len(items)),
		attribute.String(observability.AttrPolicy, string(c.cfg.Policy)),
	)
	c.log.Debug("fan-out round started", logger.Fields(logger.FieldRound, rd.id, logger.FieldCount, len(items)))

	if len(items) == 0 {
		c.settle(rd)
		return
	}
	for _, rec := range items {
		if rd.done {
			return
		}
		id := c.store.KeyOf(rec)
		src := secondary(rec)
		if c.cfg.ItemTimeout > 0 {
			src = stream.Timeout(src, c.cfg.ItemTimeout)
		}
		sub := stream.ObserveOn(src, c.sched).Subscribe(ctx, stream.Observer[R]{
			OnValue:    func(v R) { c.onItem(rd, id, v) },
			OnError:    func(err error) { c.onItemError(ctx, rd, id, err) },
			OnComplete: func() { c.onItemDone(rd) },
		})
		rd.reg.Register(sub)
	}
}

func (c *Coordinator[K, R]) onItem(rd *round, id K, v R) {
	if rd.done || c.failed {
		return
	}
	idx, err := c.store.UpdateByIdentity(id, func(R) R { return v })
	if err != nil {
		rd.summary.Missed++
		c.metrics.RecordMiss(context.Background())
		c.log.Warn("enrichment result dropped", logger.Fields(
			logger.FieldRound, rd.id,
			logger.FieldIdentity, fmt.Sprint(id),
			logger.FieldError, err.Error(),
		))
		c.listener.OnWarning(err)
		return
	}
	rd.summary.Enriched++
	c.metrics.RecordUpdate(context.Background())
	c.listener.OnItemChanged(idx, v)
}

func (c *Coordinator[K, R]) onItemError(ctx context.Context, rd *round, id K, err error) {
	if rd.done || c.failed {
		return
	}
	wrapped := errors.EnrichmentFailed(fmt.Sprint(id), err)
	rd.summary.Failed++
	if c.cfg.Policy == FailFast {
		observability.SetSpanError(rd.span, wrapped)
		c.closeRound(rd, "failed")
		c.fail(ctx, "enrichment", wrapped)
		return
	}
	c.log.Warn("enrichment failed, continuing", logger.Fields(
		logger.FieldRound, rd.id,
		logger.FieldIdentity, fmt.Sprint(id),
		logger.FieldError, err.Error(),
	))
	c.listener.OnWarning(wrapped)
	c.finishItem(rd)
}

func (c *Coordinator[K, R]) onItemDone(rd *round) {
	if rd.done || c.failed {
		return
	}
	c.finishItem(rd)
}

func (c *Coordinator[K, R]) finishItem(rd *round) {
	rd.pending--
	if rd.pending == 0 {
		c.settle(rd)
	}
}

func (c *Coordinator[K, R]) settle(rd *round) {
	rd.done = true
	c.registry.Remove(rd.key)
	rd.span.SetAttributes(attribute.String(observability.AttrOutcome, "settled"))
	rd.span.End()
	c.log.Info("fan-out round settled", logger.Fields(
		logger.FieldRound, rd.id,
		"enriched", rd.summary.Enriched,
		"failed", rd.summary.Failed,
		"missed", rd.summary.Missed,
	))
	c.listener.OnSettled(rd.summary)
}

// closeRound cancels every outstanding fetch of rd.
func (c *Coordinator[K, R]) closeRound(rd *round, outcome string) {
	rd.done = true
	c.registry.Remove(rd.key)
	rd.reg.CancelAll()
	rd.span.SetAttributes(attribute.String(observability.AttrOutcome, outcome))
	rd.span.End()
	c.log.Debug("fan-out round closed", logger.Fields(logger.FieldRound, rd.id, "outcome", outcome))
}

func (c *Coordinator[K, R]) onPrimaryError(err error) {
	if c.failed {
		return
	}
	if rd := c.round; rd != nil && !rd.done {
		c.closeRound(rd, "failed")
	}
	c.fail(context.Background(), "primary", errors.PrimaryFetchFailed(err))
}

// fail makes the pipeline terminal and surfaces err exactly once. Records
// already merged stay in the store.
func (c *Coordinator[K, R]) fail(ctx context.Context, stage string, err error) {
	c.failed = true
	c.registry.CancelAll()
	c.metrics.RecordFailure(ctx, stage)
	c.log.Error("pipeline failed", logger.Fields("stage", stage, logger.FieldError, err.Error()))
	c.listener.OnFailure(err)
}
