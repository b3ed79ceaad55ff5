package crawler

import (
	"context"
	"sync"
	"time"
)

// DefaultDrainTimeout bounds how long Shutdown waits for in-flight tasks.
const DefaultDrainTimeout = 60 * time.Second

// Pool is a fixed-size worker pool with a bounded queue. Submit never
// blocks the queue open-endedly and never drops work: when the queue is
// full the task runs on the submitting goroutine, which throttles
// enumeration to the pool's pace.
type Pool struct {
	tasks  chan func(ctx context.Context)
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	// DrainTimeout bounds Shutdown's wait for queued work before the
	// pool context is cancelled.
	DrainTimeout time.Duration
}

// NewPool starts a pool with the given number of workers and queue
// capacity. Non-positive workers default to 1; non-positive queue
// capacity defaults to twice the worker count.
func NewPool(workers, queue int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		tasks:        make(chan func(ctx context.Context), queue),
		ctx:          ctx,
		cancel:       cancel,
		DrainTimeout: DefaultDrainTimeout,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task(p.ctx)
	}
}

// Submit queues a task, or runs it on the calling goroutine when the
// queue is full. Tasks submitted after Shutdown are dropped.
func (p *Pool) Submit(task func(ctx context.Context)) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}

	select {
	case p.tasks <- task:
	default:
		task(p.ctx)
	}
}

// Shutdown stops intake, waits up to DrainTimeout for queued and
// in-flight tasks, then cancels the pool context to unblock stragglers
// and waits for the workers to exit.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.DrainTimeout):
		p.cancel()
		<-done
	}
	p.cancel()
}
