// Package multicore is the parallel-execution layer of the prover: a fixed-size
// worker pool that vector and polynomial kernels (FFTs, multi-scalar
// multiplication, constraint evaluation) use to split their work.
//
// # Pool and Worker
//
// A [Pool] owns a fixed number of long-lived worker goroutines. The count
// comes from [WithWorkers], else the MULTICORE_NUM_WORKERS environment
// variable, else the number of CPUs the process may run on. Kernels talk to
// the pool through a [Worker] handle:
//
//	w := multicore.NewWorker()            // process-wide pool
//	chunk := w.ChunkSize(len(coeffs))     // ceil(n / workers), or 1
//	tasks := w.NumSpawnedTasks(len(coeffs))
//
// [NewWorker] uses the process-wide pool, created lazily by [Default] or
// explicitly by [Init] and torn down by [Shutdown]. Tests and embedders can
// create their own pool with [NewPool] and use [Pool.Worker].
//
// # Scoped Tasks
//
// [Scoped] and [InPlaceScoped] run a function with a [Scope] and the chunk
// size for n elements. Tasks started with [Scope.Spawn], and any tasks they
// spawn in turn, have all finished when the call returns:
//
//	sum := multicore.InPlaceScoped(w, len(v), func(s *multicore.Scope, chunk int) int {
//	    for start := 0; start < len(v); start += chunk {
//	        s.Spawn(func(*multicore.Scope) { ... })
//	    }
//	    return 0
//	})
//
// Workers blocked at a scope exit keep executing queued tasks, so scopes may
// be nested freely, including from inside pool tasks. [Parallelize],
// [ParallelizeRange] and [Map] cover the common one-task-per-chunk pattern.
//
// # Detached Tasks
//
// [Compute] submits a function as a detached task and returns a [Waiter].
// [Waiter.Wait] blocks until the result is there; panics in the task come
// back as [*PanicError]. [Done] builds a Waiter that already holds a value.
//
// Detached submissions are governed: once more than workers × K detached
// tasks are in flight (K from [WithSpawnFactor] or MULTICORE_SPAWN_FACTOR,
// default [DefaultSpawnFactor]), new submissions are installed instead of
// growing the queue: a worker runs them in place, any other goroutine hands
// them to the next free worker and waits. Results are the same on both paths,
// and after [Pool.Close] both resolve to [ErrPoolClosed].
//
// Never call [Waiter.Wait] from a pool worker. It is logged as an error, and
// panics in builds tagged multicore_debug.
//
// # Panic Recovery
//
// A panic in a scoped task is captured with its stack trace and re-raised as
// [*PanicError] when the scope exits, once every task has finished. A panic in
// the scope body itself takes priority.
package multicore
