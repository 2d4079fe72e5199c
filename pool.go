package multicore

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/petermattis/goid"
	"github.com/rs/zerolog"
)

// ErrPoolClosed is published through a [Waiter] when a detached task is
// submitted after [Pool.Close].
var ErrPoolClosed = errors.New("multicore: pool is closed")

// Pool is the execution context shared by every parallel kernel: a fixed set
// of long-lived worker goroutines, the queue they drain and the governor that
// bounds detached submissions.
//
// A Pool is configured once in [NewPool] and is immutable afterwards apart from
// its counters. Most programs use the process-wide pool through [NewWorker];
// tests and embedders construct their own and call [Pool.Close] when done.
type Pool struct {
	cfg      config
	log      zerolog.Logger
	governor *governor

	mu       sync.Mutex
	cond     *sync.Cond
	tasks    *queue.Queue // of func()
	installs *queue.Queue // of func(), served before tasks
	closed   bool

	wg sync.WaitGroup

	// goroutine id -> worker index
	workerIDs sync.Map

	// Observability counters.
	spawned   atomic.Int64
	installed atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
	active    atomic.Int64
}

// PoolStats provides a point-in-time snapshot of pool activity.
type PoolStats struct {
	Workers        int   // worker count (fixed at creation)
	SpawnThreshold int64 // in-flight detached tasks above which submissions run in place
	Queued         int   // tasks waiting in the queue
	Active         int64 // tasks currently executing on workers
	InFlight       int64 // detached tasks submitted and not yet published
	Spawned        int64 // detached tasks that went through the queue
	Installed      int64 // detached tasks redirected past the spawn threshold
	Completed      int64 // queued tasks (detached and scoped) finished by workers
	Panicked       int64 // worker tasks that panicked outside of a task wrapper
}

// NewPool creates a pool and starts its workers. Options override the
// environment, which overrides the detected core count.
func NewPool(opts ...Option) *Pool {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pool{
		cfg:      cfg,
		log:      cfg.logger.With().Str("component", "multicore").Logger(),
		governor: newGovernor(cfg.spawnThreshold()),
		tasks:    queue.New(),
		installs: queue.New(),
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(cfg.workers)
	for i := range cfg.workers {
		go p.worker(i)
	}

	p.log.Debug().
		Int("workers", cfg.workers).
		Int64("spawn_threshold", cfg.spawnThreshold()).
		Msg("pool started")

	return p
}

// Worker returns a handle bound to this pool.
func (p *Pool) Worker() Worker {
	return Worker{pool: p}
}

func (p *Pool) worker(idx int) {
	defer p.wg.Done()

	id := goid.Get()
	p.workerIDs.Store(id, idx)
	defer p.workerIDs.Delete(id)

	for {
		fn, ok := p.next()
		if !ok {
			return
		}
		p.runTask(fn)
	}
}

// next blocks until a task is available. It reports false once the pool is
// closed and the queue has been drained.
func (p *Pool) next() (func(), bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.queued() == 0 {
		if p.closed {
			return nil, false
		}
		p.cond.Wait()
	}
	return p.pop(), true
}

// queued returns the number of waiting tasks. p.mu must be held.
func (p *Pool) queued() int {
	return p.installs.Length() + p.tasks.Length()
}

// pop removes the next task, redirected submissions first. p.mu must be held
// and queued() must be positive.
func (p *Pool) pop() func() {
	if p.installs.Length() > 0 {
		return p.installs.Remove().(func())
	}
	return p.tasks.Remove().(func())
}

func (p *Pool) runTask(fn func()) {
	p.active.Add(1)
	defer func() {
		p.active.Add(-1)
		p.completed.Add(1)
		if r := recover(); r != nil {
			p.panicked.Add(1)
			p.log.Error().Interface("panic", r).Msg("worker task panicked")
		}
	}()
	fn()
}

// spawn queues fn for execution by an idle worker. It reports false if the
// pool is closed, in which case fn has not been queued.
func (p *Pool) spawn(fn func()) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.tasks.Add(fn)
	p.mu.Unlock()

	p.cond.Broadcast()
	return true
}

// install runs fn inside the pool and returns once it has finished. A worker
// runs fn itself and keeps its own slot busy instead of adding to the backlog.
// Any other goroutine hands fn to the next free worker, ahead of the queued
// tasks, and blocks. It reports false if the pool is closed, in which case fn
// has not run.
func (p *Pool) install(fn func()) bool {
	if p.onWorker() {
		p.installed.Add(1)
		fn()
		return true
	}

	finished := make(chan struct{})
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.installs.Add(func() {
		defer close(finished)
		fn()
	})
	p.mu.Unlock()
	p.cond.Broadcast()

	p.installed.Add(1)
	<-finished
	return true
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// onWorker reports whether the calling goroutine is one of this pool's workers.
func (p *Pool) onWorker() bool {
	_, ok := p.workerIDs.Load(goid.Get())
	return ok
}

// workerIndex returns the index of the calling worker, or 0 off the pool.
func (p *Pool) workerIndex() int {
	if idx, ok := p.workerIDs.Load(goid.Get()); ok {
		return idx.(int)
	}
	return 0
}

// waitUntil blocks until done reports true. A worker that waits keeps
// executing queued tasks in the meantime, so nested scopes make progress even
// when every worker is blocked in a scope exit.
//
// done is evaluated with p.mu held; whoever makes it true must call wake.
func (p *Pool) waitUntil(done func() bool) {
	helping := p.onWorker()

	p.mu.Lock()
	for !done() {
		if helping && p.queued() > 0 {
			fn := p.pop()
			p.mu.Unlock()
			p.runTask(fn)
			p.mu.Lock()
			continue
		}
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// wake notifies goroutines blocked in waitUntil that their condition may hold.
func (p *Pool) wake() {
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Stats returns a point-in-time snapshot of pool activity.
// Safe to call concurrently.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	queued := p.queued()
	p.mu.Unlock()

	return PoolStats{
		Workers:        p.cfg.workers,
		SpawnThreshold: p.cfg.spawnThreshold(),
		Queued:         queued,
		Active:         p.active.Load(),
		InFlight:       p.governor.load(),
		Spawned:        p.spawned.Load(),
		Installed:      p.installed.Load(),
		Completed:      p.completed.Load(),
		Panicked:       p.panicked.Load(),
	}
}

// Close stops accepting new tasks, lets the workers drain the queue and waits
// for them to exit. Safe to call multiple times.
//
// Close must not be called from a worker.
func (p *Pool) Close() {
	if p.onWorker() {
		panic("multicore: Close called from a pool worker")
	}

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()

	p.wg.Wait()
}
