package fetch

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/kbukum/flightsearch/errors"
	"github.com/kbukum/flightsearch/logger"
	"github.com/kbukum/flightsearch/validation"
)

// ErrBreakerOpen is the cause of calls rejected by an open breaker.
var ErrBreakerOpen = stderrors.New("circuit breaker is open")

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	// BreakerClosed lets every call through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects every call until the cooldown passes.
	BreakerOpen
	// BreakerHalfOpen lets HalfOpenCalls trial calls through.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a Breaker. A zero MaxFailures disables it.
type BreakerConfig struct {
	// MaxFailures is the consecutive failure count that opens the breaker.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures" json:"max_failures" validate:"gte=0"`
	// Cooldown is how long the breaker stays open. Defaults to 30s.
	Cooldown time.Duration `yaml:"cooldown" mapstructure:"cooldown" json:"cooldown" validate:"gte=0"`
	// HalfOpenCalls is how many trials must succeed to close again. Defaults to 1.
	HalfOpenCalls int `yaml:"half_open_calls" mapstructure:"half_open_calls" json:"half_open_calls" validate:"gte=0"`
}

// Enabled reports whether the config describes an active breaker.
func (c BreakerConfig) Enabled() bool { return c.MaxFailures > 0 }

// ApplyDefaults fills in zero-value fields.
func (c *BreakerConfig) ApplyDefaults() {
	if c.Cooldown <= 0 {
		c.Cooldown = 30 * time.Second
	}
	if c.HalfOpenCalls <= 0 {
		c.HalfOpenCalls = 1
	}
}

// Validate checks the configuration.
func (c *BreakerConfig) Validate() error {
	return validation.Validate(c)
}

// Breaker stops calling an upstream that keeps failing. Only upstream
// faults count as failures: 5xx AppErrors and non-AppErrors. A 4xx answer
// counts as a success; a cancelled call counts as nothing.
type Breaker struct {
	name string
	cfg  BreakerConfig
	now  func() time.Time
	log  *logger.Logger

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	trials    int
	openedAt  time.Time
}

// NewBreaker creates a closed breaker for the upstream called name.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	cfg.ApplyDefaults()
	return &Breaker{
		name: name,
		cfg:  cfg,
		now:  time.Now,
		log:  logger.WithComponent("breaker").WithFields(logger.Fields("upstream", name)),
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.current() {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		if b.trials < b.cfg.HalfOpenCalls {
			b.trials++
			return true
		}
	}
	return false
}

func (b *Breaker) record(ctx context.Context, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	state := b.current()
	switch {
	case err != nil && ctx.Err() != nil:
		// A cancelled trial proves nothing; let another one through.
		if state == BreakerHalfOpen && b.trials > 0 {
			b.trials--
		}
	case err == nil || !upstreamFault(err):
		switch state {
		case BreakerClosed:
			b.failures = 0
		case BreakerHalfOpen:
			b.successes++
			if b.successes >= b.cfg.HalfOpenCalls {
				b.to(BreakerClosed)
			}
		}
	default:
		b.failures++
		if state == BreakerHalfOpen || b.failures >= b.cfg.MaxFailures {
			b.openedAt = b.now()
			b.to(BreakerOpen)
		}
	}
}

// current moves an open breaker to half-open once the cooldown passed.
func (b *Breaker) current() BreakerState {
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		b.to(BreakerHalfOpen)
	}
	return b.state
}

func (b *Breaker) to(s BreakerState) {
	if b.state == s {
		return
	}
	b.log.Warn("breaker state changed", logger.Fields("from", b.state.String(), "to", s.String()))
	b.state = s
	b.successes = 0
	b.trials = 0
	if s == BreakerClosed {
		b.failures = 0
	}
}

func upstreamFault(err error) bool {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.HTTPStatus >= http.StatusInternalServerError
	}
	return true
}

// WithBreaker rejects calls with SERVICE_UNAVAILABLE while b is open.
func WithBreaker[I, O any](b *Breaker) Middleware[I, O] {
	return func(inner Fetcher[I, O]) Fetcher[I, O] {
		return &wrapped[I, O]{inner: inner, fetch: func(ctx context.Context, in I) (O, error) {
			if !b.allow() {
				var zero O
				return zero, errors.ServiceUnavailable(b.name).WithCause(ErrBreakerOpen)
			}
			out, err := inner.Fetch(ctx, in)
			b.record(ctx, err)
			return out, err
		}}
	}
}
