package multicore

import (
	"errors"
	"sync"
)

// ErrAlreadyInitialized is returned by [Init] when the process-wide pool
// already exists.
var ErrAlreadyInitialized = errors.New("multicore: default pool already initialized")

var (
	defaultMu   sync.Mutex
	defaultPool *Pool
)

// Init creates the process-wide pool with the given options. It must run
// before the first [Default] or [NewWorker] call, otherwise it returns
// [ErrAlreadyInitialized] and leaves the existing pool untouched.
func Init(opts ...Option) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultPool != nil {
		return ErrAlreadyInitialized
	}
	defaultPool = NewPool(opts...)
	return nil
}

// Default returns the process-wide pool, creating it from the environment on
// first use.
func Default() *Pool {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultPool == nil {
		defaultPool = NewPool()
	}
	return defaultPool
}

// Shutdown closes the process-wide pool and forgets it; the next [Default]
// call creates a fresh one. Handles obtained before Shutdown keep pointing at
// the closed pool.
func Shutdown() {
	defaultMu.Lock()
	p := defaultPool
	defaultPool = nil
	defaultMu.Unlock()

	if p != nil {
		p.Close()
	}
}
