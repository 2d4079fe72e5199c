package multicore

import "sync/atomic"

// strategy is how a detached submission gets executed.
type strategy int

const (
	// strategySpawn queues the task for an idle worker.
	strategySpawn strategy = iota

	// strategyInstall runs the task immediately on the submitting goroutine,
	// adding nothing to the queue.
	strategyInstall
)

func (s strategy) String() string {
	switch s {
	case strategySpawn:
		return "spawn"
	case strategyInstall:
		return "install"
	default:
		return "unknown"
	}
}

// decideStrategy picks the execution strategy for a detached submission given
// the number of detached tasks that were in flight before it was admitted.
func decideStrategy(previous, threshold int64) strategy {
	if previous > threshold {
		return strategyInstall
	}
	return strategySpawn
}

// governor counts in-flight detached tasks. It never rejects a submission,
// it only redirects it once the backlog exceeds the threshold, which keeps
// the number of queued closures in O(threshold).
type governor struct {
	inFlight  atomic.Int64
	threshold int64
}

func newGovernor(threshold int64) *governor {
	return &governor{threshold: threshold}
}

// admit registers a new detached task and returns how it must run.
func (g *governor) admit() (strategy, int64) {
	previous := g.inFlight.Add(1) - 1
	return decideStrategy(previous, g.threshold), previous
}

// release must be called exactly once per admit, after the task result
// has been published.
func (g *governor) release() {
	if g.inFlight.Add(-1) < 0 {
		g.inFlight.Add(1) // undo
		panic("multicore: governor released more tasks than admitted")
	}
}

func (g *governor) load() int64 {
	return g.inFlight.Load()
}
