// Package worker runs jobs off the request path with bounded concurrency.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrClosed = errors.New("worker pool is shut down")
	ErrFull   = errors.New("worker pool queue is full")
)

// Job is one unit of background work. The context is cancelled when the pool
// shuts down before the job finishes.
type Job func(ctx context.Context) error

// Pool starts one goroutine per submitted job; a semaphore caps how many run
// at once and a queue limit caps how many may wait.
type Pool struct {
	sem        chan struct{}
	queueLimit int
	logger     *zap.Logger
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending int
	closed  bool
}

// Option customizes a Pool.
type Option func(*Pool)

// WithLogger overrides the pool logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithQueueLimit caps jobs that are running or waiting; 0 disables the cap.
func WithQueueLimit(n int) Option {
	return func(p *Pool) {
		if n >= 0 {
			p.queueLimit = n
		}
	}
}

// New returns a pool running at most workers jobs concurrently.
func New(workers int, opts ...Option) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		sem:        make(chan struct{}, workers),
		queueLimit: workers * 32,
		logger:     zap.NewNop(),
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Submit schedules job and returns its id without waiting for it to start.
func (p *Pool) Submit(name string, job Job) (string, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", ErrClosed
	}
	if p.queueLimit > 0 && p.pending >= p.queueLimit {
		p.mu.Unlock()
		return "", ErrFull
	}
	p.pending++
	p.wg.Add(1)
	p.mu.Unlock()

	id := uuid.NewString()
	go p.run(id, name, job)
	return id, nil
}

func (p *Pool) run(id, name string, job Job) {
	defer p.wg.Done()
	defer func() {
		p.mu.Lock()
		p.pending--
		p.mu.Unlock()
	}()

	select {
	case p.sem <- struct{}{}:
	case <-p.ctx.Done():
		p.logger.Warn("job dropped at shutdown", zap.String("job_id", id), zap.String("job", name))
		return
	}
	defer func() { <-p.sem }()

	log := p.logger.With(zap.String("job_id", id), zap.String("job", name))
	start := p.now()
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		err = job(p.ctx)
	}()
	elapsed := p.now().Sub(start)
	if err != nil {
		log.Error("job failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return
	}
	log.Debug("job finished", zap.Duration("elapsed", elapsed))
}

// Pending reports jobs that are running or waiting for a slot.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Shutdown stops accepting jobs and waits for running ones. If ctx ends
// first, running jobs are cancelled and ctx's error is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
