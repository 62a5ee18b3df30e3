package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/kbukum/flightsearch/logger"
)

// Config configures a Pool.
type Config struct {
	// Name identifies the pool in logs.
	Name string `yaml:"name" mapstructure:"name"`
	// MaxConcurrent bounds running tasks. Zero or less means unbounded.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// Pool runs tasks concurrently, at most MaxConcurrent at a time. Go never
// blocks the caller; a task waits for a slot on its own goroutine.
type Pool struct {
	name     string
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	inFlight atomic.Int64
	log      *logger.Logger
}

// New creates a pool.
func New(cfg Config) *Pool {
	p := &Pool{
		name: cfg.Name,
		log:  logger.Get("worker").WithFields(logger.Fields("pool", cfg.Name)),
	}
	if cfg.MaxConcurrent > 0 {
		p.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	return p
}

// Go runs task on the pool. If ctx is cancelled while the task is still
// waiting for a slot, the task is skipped.
func (p *Pool) Go(ctx context.Context, task func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if p.sem != nil {
			if err := p.sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer p.sem.Release(1)
		}
		if ctx.Err() != nil {
			return
		}
		p.inFlight.Add(1)
		defer p.inFlight.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				p.log.Error("task panicked", logger.Fields(logger.FieldError, fmt.Sprint(r)))
			}
		}()
		task(ctx)
	}()
}

// InFlight returns the number of tasks currently running.
func (p *Pool) InFlight() int { return int(p.inFlight.Load()) }

// Wait blocks until every task handed to Go has returned or been skipped.
func (p *Pool) Wait() { p.wg.Wait() }
