// Package asyncio offloads crash-file persistence onto
// a small goroutine pool so the main fuzzing loop never blocks on disk
// I/O. It must never be used for anything on the fuzzing hot path
// itself (mutation, execution, feedback): spec.md §5 requires exactly
// one target execution in flight at a time, and handing that work to a
// pool would violate it. Adapted from the teacher's requester
// WorkerPool, repurposed from concurrent HTTP request dispatch to
// off-loop file persistence.
package asyncio

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
)

// Pool manages a bounded set of goroutines dedicated to background
// persistence tasks (crash file writes, queued through SaveCrash). A
// failed save is counted, not returned: by the time a save reaches the
// pool it is already off the caller's error path, so the caller moves
// on and the failure is only surfaced through Stats and a stderr log.
type Pool struct {
	pool       *ants.Pool
	wg         sync.WaitGroup
	isShutdown atomic.Bool

	submitted   atomic.Int64
	completed   atomic.Int64
	failedSaves atomic.Int64
}

// Options configures the pool.
type Options struct {
	Size        int
	PreAlloc    bool
	MaxBlocking int
}

// DefaultOptions returns a small pool sized for occasional persistence
// bursts rather than sustained request-style concurrency.
func DefaultOptions() *Options {
	return &Options{
		Size:        4,
		PreAlloc:    true,
		MaxBlocking: 64,
	}
}

// New creates a Pool.
func New(opts *Options) (*Pool, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	pool, err := ants.NewPool(
		opts.Size,
		ants.WithPreAlloc(opts.PreAlloc),
		ants.WithMaxBlockingTasks(opts.MaxBlocking),
	)
	if err != nil {
		return nil, err
	}
	return &Pool{pool: pool}, nil
}

// SaveCrash queues save (typically seedstore.Store.SaveCrash bound to
// a particular crashing input) to run on the pool. A save failure is
// tallied in FailedSaves and logged to stderr rather than returned,
// since the fuzzing loop has already moved on to the next round by the
// time this runs.
func (p *Pool) SaveCrash(save func() (string, error)) error {
	if p.isShutdown.Load() {
		return ants.ErrPoolClosed
	}
	p.submitted.Add(1)
	p.wg.Add(1)
	return p.pool.Submit(func() {
		defer p.wg.Done()
		defer p.completed.Add(1)
		if _, err := save(); err != nil {
			p.failedSaves.Add(1)
			fmt.Fprintf(os.Stderr, "[!] failed to persist crash: %v\n", err)
		}
	})
}

// Wait blocks until every submitted task has completed.
func (p *Pool) Wait() { p.wg.Wait() }

// Shutdown drains outstanding tasks and releases the pool. Called once
// at fuzzer shutdown so no persistence task is left dangling.
func (p *Pool) Shutdown() {
	p.isShutdown.Store(true)
	p.Wait()
	p.pool.Release()
}

// Stats reports the pool's current load.
type Stats struct {
	Running     int
	Capacity    int
	Submitted   int64
	Completed   int64
	FailedSaves int64
}

func (p *Pool) Stats() Stats {
	return Stats{
		Running:     p.pool.Running(),
		Capacity:    p.pool.Cap(),
		Submitted:   p.submitted.Load(),
		Completed:   p.completed.Load(),
		FailedSaves: p.failedSaves.Load(),
	}
}
