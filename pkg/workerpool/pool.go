// Package workerpool runs background jobs on a fixed set of goroutines.
//
// The order service hands rating aggregation to a pool so review
// submission never waits on the product write. When every worker is
// busy and the queue is full, Submit reports backpressure instead of
// spawning more goroutines.
package workerpool

import (
	"errors"
	"sync"
)

// ErrPoolFull is returned by Submit when the job queue is at capacity.
var ErrPoolFull = errors.New("workerpool: pool is full")

// ErrPoolClosed is returned by Submit after Shutdown.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Pool is a bounded goroutine pool.
type Pool struct {
	jobs    chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closing chan struct{}
}

// New creates a Pool with workers goroutines and a queue holding up to
// queue pending jobs. Both are clamped to at least 1.
func New(workers, queue int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = 1
	}

	p := &Pool{
		jobs:    make(chan func(), queue),
		closing: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Submit enqueues job without blocking. Returns ErrPoolFull when the
// queue is at capacity and ErrPoolClosed after Shutdown.
func (p *Pool) Submit(job func()) error {
	select {
	case <-p.closing:
		return ErrPoolClosed
	default:
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait blocks until a queue slot frees up or the pool is closed.
func (p *Pool) SubmitWait(job func()) error {
	select {
	case <-p.closing:
		return ErrPoolClosed
	default:
	}

	select {
	case <-p.closing:
		return ErrPoolClosed
	case p.jobs <- job:
		return nil
	}
}

// Shutdown stops accepting jobs, lets the workers drain the queue, and
// waits for in-flight jobs to finish. Safe to call more than once. The
// jobs channel is never closed: a Submit racing Shutdown may still send
// on it, and that send must not panic. A job that loses such a race is
// dropped with the queue.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		close(p.closing)
		p.wg.Wait()
	})
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobs:
			p.exec(job)
		case <-p.closing:
			// Run whatever was queued before the close, then exit.
			for {
				select {
				case job := <-p.jobs:
					p.exec(job)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) exec(job func()) {
	// A panicking job must not take the worker down with it.
	defer func() { recover() }() //nolint:errcheck
	job()
}
