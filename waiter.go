package multicore

import (
	"sync"
	"sync/atomic"
)

// Waiter is the completion handle of a detached task started with [Compute].
// It receives exactly one outcome; [Waiter.Wait] blocks until it is there.
type Waiter[T any] struct {
	ch    chan outcome[T]
	sent  atomic.Bool // publish has started
	ready atomic.Bool // outcome is in ch

	once sync.Once
	res  outcome[T]

	// pool the producing task runs on; nil for handles made by Done.
	pool *Pool
}

type outcome[T any] struct {
	val T
	err error
}

func newWaiter[T any](p *Pool) *Waiter[T] {
	return &Waiter[T]{
		ch:   make(chan outcome[T], 1),
		pool: p,
	}
}

// Done returns a Waiter that already holds v. It lets call sites that
// sometimes compute synchronously return the same type as [Compute].
func Done[T any](v T) *Waiter[T] {
	w := newWaiter[T](nil)
	w.publish(v, nil)
	return w
}

// publish delivers the task outcome. A second publish is a bug in the
// producer and panics.
func (w *Waiter[T]) publish(v T, err error) {
	if w.sent.Swap(true) {
		panic("multicore: waiter published twice")
	}
	// The channel has room for the single outcome, so this never blocks,
	// even when the consumer has dropped the handle.
	w.ch <- outcome[T]{val: v, err: err}
	w.ready.Store(true)
}

// Wait blocks until the task has produced its outcome and returns it. A panic
// inside the task is returned as a [*PanicError]. Repeated calls return the
// same outcome.
//
// Wait must not be called from a pool worker: the awaited task may have been
// redirected to run in place on that very worker, or be queued behind it, and
// nothing else would make progress. Such calls are logged; builds tagged
// multicore_debug panic instead.
func (w *Waiter[T]) Wait() (T, error) {
	if w.pool != nil && w.pool.onWorker() {
		w.pool.log.Error().
			Int("worker", w.pool.workerIndex()).
			Msg("Waiter.Wait called inside the worker pool, this can deadlock")
		if debugAssertions {
			panic("multicore: Waiter.Wait called from a pool worker")
		}
	}

	w.once.Do(func() {
		w.res = <-w.ch
	})
	return w.res.val, w.res.err
}

// Ready reports whether the outcome is available, without blocking.
func (w *Waiter[T]) Ready() bool {
	return w.ready.Load()
}

// Compute runs fn as a detached task on the pool behind w and returns its
// completion handle immediately.
//
// While the number of in-flight detached tasks stays within the spawn
// threshold, fn is queued for an idle worker. Past it, fn is installed: a
// worker runs it in place, any other caller hands it to the next free worker
// and blocks. Either way fn has finished before Compute returns, so a
// recursive producer cannot grow the queue without bound. Both paths yield
// the same outcome, and both resolve to [ErrPoolClosed] once the pool is
// closed.
func Compute[R any](w Worker, fn func() (R, error)) *Waiter[R] {
	p := w.pool
	wt := newWaiter[R](p)

	if p.isClosed() {
		var zero R
		wt.publish(zero, ErrPoolClosed)
		return wt
	}

	strat, previous := p.governor.admit()
	task := func() {
		defer p.governor.release()
		v, err := callCapture(fn)
		wt.publish(v, err)
	}

	if strat == strategyInstall {
		p.log.Trace().
			Int("worker", p.workerIndex()).
			Int("workers", p.cfg.workers).
			Int64("in_flight", previous+1).
			Msg("switching to install to help clear backlog")
		if p.install(task) {
			return wt
		}
	} else if p.spawn(task) {
		p.spawned.Add(1)
		return wt
	}

	// Closed after the check above.
	var zero R
	wt.publish(zero, ErrPoolClosed)
	p.governor.release()
	return wt
}

// callCapture runs fn, turning a panic into a *PanicError.
func callCapture[R any](fn func() (R, error)) (v R, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			v, err = zero, newPanicError(r)
		}
	}()
	return fn()
}
