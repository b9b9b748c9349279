// Package pool bounds concurrent geometry computations.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

var (
	ErrPoolClosed = errors.New("pool is closed")
	ErrPoolFull   = errors.New("pool is full")
)

// Task represents a unit of work.
type Task func(ctx context.Context) error

// Config configures the pool.
type Config struct {
	MaxWorkers int `yaml:"max_workers" json:"max_workers" env:"MAX_WORKERS"`
	QueueSize  int `yaml:"queue_size" json:"queue_size" env:"QUEUE_SIZE"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxWorkers: 4,
		QueueSize:  16,
	}
}

// Pool runs tasks on the caller's goroutine once one of MaxWorkers slots is
// free. At most QueueSize callers wait for a slot; further callers are
// rejected with ErrPoolFull.
type Pool struct {
	sem      *semaphore.Weighted
	capacity int64 // workers + queue
	pending  atomic.Int64
	active   atomic.Int64
	closed   atomic.Bool

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64

	workers int
}

// New creates a pool. Non-positive values fall back to DefaultConfig.
func New(cfg Config) *Pool {
	def := DefaultConfig()
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = def.MaxWorkers
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = def.QueueSize
	}
	return &Pool{
		sem:      semaphore.NewWeighted(int64(cfg.MaxWorkers)),
		capacity: int64(cfg.MaxWorkers + cfg.QueueSize),
		workers:  cfg.MaxWorkers,
	}
}

// Run waits for a free slot and executes task. It returns ErrPoolFull without
// waiting when the queue is at capacity and ctx.Err() if ctx ends first.
func (p *Pool) Run(ctx context.Context, task Task) (err error) {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.submitted.Add(1)
	if p.pending.Add(1) > p.capacity {
		p.pending.Add(-1)
		p.rejected.Add(1)
		return ErrPoolFull
	}
	defer p.pending.Add(-1)

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.rejected.Add(1)
		return err
	}
	defer p.sem.Release(1)

	p.active.Add(1)
	defer p.active.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
		if err != nil {
			p.failed.Add(1)
		} else {
			p.completed.Add(1)
		}
	}()
	return task(ctx)
}

// Close rejects further tasks. Running tasks are not interrupted.
func (p *Pool) Close() {
	p.closed.Store(true)
}

// Stats returns pool statistics.
func (p *Pool) Stats() Stats {
	active := p.active.Load()
	return Stats{
		Workers:   p.workers,
		Active:    int(active),
		Queued:    max(0, int(p.pending.Load()-active)),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Rejected:  p.rejected.Load(),
	}
}

// Stats contains pool statistics.
type Stats struct {
	Workers   int   `json:"workers"`
	Active    int   `json:"active"`
	Queued    int   `json:"queued"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Rejected  int64 `json:"rejected"`
}
