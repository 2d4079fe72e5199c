package multicore

import (
	"math"
	"sync"
	"sync/atomic"
)

// Scope is a structured task group. Every task spawned on it, including tasks
// spawned by those tasks, has finished by the time the [Scoped] or
// [InPlaceScoped] call that created it returns.
//
// A Scope is only valid inside the function passed to Scoped or InPlaceScoped
// and inside the tasks spawned on it. Spawning after the scope has exited
// panics.
type Scope struct {
	pool *Pool

	// running children, or scopeClosed once the scope has exited
	pending atomic.Int64

	panicMu sync.Mutex
	panics  []*PanicError
}

// scopeClosed keeps pending negative after exit, whatever stray Spawn calls
// add to it.
const scopeClosed = math.MinInt64 / 2

func newScope(p *Pool) *Scope {
	return &Scope{pool: p}
}

// Spawn starts fn as a child task of the scope. fn receives the scope so it
// can spawn further children. Children run in no particular order.
func (s *Scope) Spawn(fn func(s *Scope)) {
	// The exit swaps pending from 0 to scopeClosed in one step: a child
	// counted before the swap is waited for, any later one is refused.
	if s.pending.Add(1) < 0 {
		s.pending.Add(-1)
		panic("multicore: Spawn called after scope exit")
	}

	task := func() {
		defer s.done()
		s.exec(fn)
	}

	if !s.pool.spawn(task) {
		// closed pool: the scope still completes, sequentially.
		task()
	}
}

// exec runs a child with panic recovery.
func (s *Scope) exec(fn func(s *Scope)) {
	defer func() {
		if r := recover(); r != nil {
			pe := newPanicError(r)
			s.panicMu.Lock()
			s.panics = append(s.panics, pe)
			s.panicMu.Unlock()
		}
	}()
	fn(s)
}

func (s *Scope) done() {
	if s.pending.Add(-1) == 0 {
		s.pool.wake()
	}
}

// finalize closes the scope, waits for every child and returns the first
// captured child panic, if any.
func (s *Scope) finalize() *PanicError {
	s.pool.waitUntil(func() bool {
		return s.pending.CompareAndSwap(0, scopeClosed)
	})

	s.panicMu.Lock()
	defer s.panicMu.Unlock()
	if len(s.panics) > 0 {
		return s.panics[0]
	}
	return nil
}

// runScope executes fn with a fresh scope on the calling goroutine.
func runScope[R any](p *Pool, chunkSize int, fn func(s *Scope, chunkSize int) R) (res R) {
	s := newScope(p)

	defer func() {
		// Step 1: Capture any panic from fn before waiting.
		bodyPanic := recover()

		// Step 2: Wait for all children, transitively.
		childPanic := s.finalize()

		// Step 3: Re-raise panics. Body panics take priority over child panics.
		if bodyPanic != nil {
			panic(bodyPanic)
		}
		if childPanic != nil {
			panic(childPanic)
		}
	}()

	return fn(s, chunkSize)
}

// Scoped runs fn with a new [Scope] and the chunk size for n elements, waits
// for every task spawned on the scope and returns fn's result.
//
// Called off the pool, fn itself is handed to a worker and the caller blocks
// until the scope completes. Called from a worker, it behaves like
// [InPlaceScoped].
//
// If fn or any spawned task panics, Scoped panics with the first panic after
// all tasks have finished.
func Scoped[R any](w Worker, n int, fn func(s *Scope, chunkSize int) R) R {
	p := w.pool
	chunkSize := w.ChunkSize(n)

	if p.onWorker() {
		return runScope(p, chunkSize, fn)
	}

	var (
		res      R
		panicVal any
		finished = make(chan struct{})
	)
	ok := p.spawn(func() {
		defer close(finished)
		defer func() {
			panicVal = recover()
		}()
		res = runScope(p, chunkSize, fn)
	})
	if !ok {
		return runScope(p, chunkSize, fn)
	}

	<-finished
	if panicVal != nil {
		panic(panicVal)
	}
	return res
}

// InPlaceScoped is like [Scoped] but always runs fn on the calling goroutine.
// Use it when the caller is already running on a worker, or wants to keep fn
// off the pool.
func InPlaceScoped[R any](w Worker, n int, fn func(s *Scope, chunkSize int) R) R {
	return runScope(w.pool, w.ChunkSize(n), fn)
}
