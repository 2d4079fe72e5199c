package multicore

import (
	"fmt"
	"math/bits"
)

// Worker is the handle kernels use to request parallel execution. It is a
// small value bound to a [Pool]; copy it freely.
type Worker struct {
	pool *Pool
}

// NewWorker returns a handle on the process-wide pool, creating it on first
// use. See [Default].
func NewWorker() Worker {
	return Default().Worker()
}

// Pool returns the pool the handle submits to.
func (w Worker) Pool() *Pool {
	return w.pool
}

// NumWorkers returns the number of worker goroutines of the pool.
func (w Worker) NumWorkers() int {
	return w.pool.cfg.workers
}

// Log2NumWorkers returns floor(log2(NumWorkers())).
func (w Worker) Log2NumWorkers() uint32 {
	return log2Floor(w.NumWorkers())
}

// ChunkSize returns how many of n uniform elements each task should take so
// that the work spreads over all workers.
func (w Worker) ChunkSize(n int) int {
	if n <= w.NumWorkers() {
		return 1
	}
	return ChunkSizeForTasks(n, w.NumWorkers())
}

// NumSpawnedTasks returns the number of tasks needed to cover n elements in
// chunks of ChunkSize(n). It never exceeds twice the worker count.
func (w Worker) NumSpawnedTasks(n int) int {
	workers := w.NumWorkers()
	if n <= workers {
		return n
	}

	chunk := w.ChunkSize(n)
	tasks := n / chunk
	if tasks*chunk < n {
		tasks++
	}
	if tasks > 2*workers {
		panic(fmt.Sprintf("multicore: %d elements need %d tasks, more than twice the %d workers", n, tasks, workers))
	}
	return tasks
}

// ChunkSizeForTasks returns ceil(n / tasks), the chunk size that splits n
// elements into the given number of tasks. It panics if tasks < 1 or
// n < tasks.
func ChunkSizeForTasks(n, tasks int) int {
	if tasks < 1 {
		panic(fmt.Sprintf("multicore: cannot split %d elements into %d tasks", n, tasks))
	}
	if n < tasks {
		panic(fmt.Sprintf("multicore: received %d elements to spawn %d tasks", n, tasks))
	}
	if n%tasks == 0 {
		return n / tasks
	}
	return n/tasks + 1
}

// log2Floor computes n where the leading bit of a is at position n.
func log2Floor(a int) uint32 {
	if a <= 0 {
		panic(fmt.Sprintf("multicore: log2 of non-positive value %d", a))
	}

	return uint32(bits.Len(uint(a)) - 1)
}
