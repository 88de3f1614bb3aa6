// Package tasks runs background work on a fixed-capacity pool.
package tasks

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultSize is the pool capacity used when none is configured
const DefaultSize = 5

// ErrPoolStopped is returned by Submit after Stop
var ErrPoolStopped = errors.New("task pool stopped")

// Pool executes submitted functions with at most size running at once
type Pool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	stopped   bool
	log       zerolog.Logger
}

// NewPool creates a pool running up to size tasks concurrently
func NewPool(size int, log zerolog.Logger) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	return &Pool{
		semaphore: make(chan struct{}, size),
		log:       log,
	}
}

// Size returns the pool capacity
func (p *Pool) Size() int {
	return cap(p.semaphore)
}

// Submit queues fn and returns immediately. Tasks may submit further tasks,
// waiting for a free slot happens off the caller's goroutine.
func (p *Pool) Submit(name string, fn func()) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrPoolStopped
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go p.execute(name, fn)
	return nil
}

func (p *Pool) execute(name string, fn func()) {
	defer p.wg.Done()

	p.semaphore <- struct{}{}
	defer func() { <-p.semaphore }()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Str("task", name).Interface("panic", r).Msg("task panicked")
		}
	}()

	p.log.Debug().Str("task", name).Msg("task started")
	fn()
	p.log.Debug().Str("task", name).Dur("took", time.Since(start)).Msg("task finished")
}

// Stop rejects new tasks and waits for queued and running ones to finish
func (p *Pool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.wg.Wait()
}
