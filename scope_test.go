package multicore

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopedReturnsResult(t *testing.T) {
	w := newTestPool(t, 4).Worker()

	for _, run := range []struct {
		name string
		fn   func(Worker, int, func(*Scope, int) int) int
	}{
		{"Scoped", Scoped[int]},
		{"InPlaceScoped", InPlaceScoped[int]},
	} {
		t.Run(run.name, func(t *testing.T) {
			got := run.fn(w, 100, func(s *Scope, chunkSize int) int {
				return chunkSize
			})
			assert.Equal(t, 25, got)
		})
	}
}

func TestScopeCompletionGuarantee(t *testing.T) {
	w := newTestPool(t, 4).Worker()

	var count atomic.Int64
	Scoped(w, 64, func(s *Scope, chunkSize int) struct{} {
		for range 64 / chunkSize {
			s.Spawn(func(s *Scope) {
				time.Sleep(time.Millisecond)
				count.Add(1)
				for range 3 {
					s.Spawn(func(s *Scope) {
						count.Add(1)
						s.Spawn(func(*Scope) {
							time.Sleep(time.Millisecond)
							count.Add(1)
						})
					})
				}
			})
		}
		return struct{}{}
	})

	// 4 chunks, each 1 + 3 × (1 + 1) tasks.
	assert.Equal(t, int64(4*7), count.Load(), "every child must be done when Scoped returns")
}

func TestDeepNestedScopes(t *testing.T) {
	// A single worker must not deadlock when every level waits on the next.
	w := newTestPool(t, 1).Worker()

	var sum func(lo, hi int) int
	sum = func(lo, hi int) int {
		if hi-lo <= 4 {
			s := 0
			for i := lo; i < hi; i++ {
				s += i
			}
			return s
		}
		mid := (lo + hi) / 2
		var left, right int
		InPlaceScoped(w, 2, func(s *Scope, _ int) struct{} {
			s.Spawn(func(*Scope) { left = sum(lo, mid) })
			s.Spawn(func(*Scope) { right = sum(mid, hi) })
			return struct{}{}
		})
		return left + right
	}

	total := Scoped(w, 1, func(*Scope, int) int {
		return sum(0, 1<<12)
	})
	assert.Equal(t, (1<<12)*((1<<12)-1)/2, total)
}

func TestScopedFromWorkerRunsInline(t *testing.T) {
	p := newTestPool(t, 2)
	w := p.Worker()

	v, err := Compute(w, func() (bool, error) {
		return Scoped(w, 4, func(*Scope, int) bool {
			return p.onWorker()
		}), nil
	}).Wait()
	require.NoError(t, err)
	assert.True(t, v)

	onPool := Scoped(w, 4, func(*Scope, int) bool {
		return p.onWorker()
	})
	assert.True(t, onPool, "Scoped hands the body to a worker")

	inPlace := InPlaceScoped(w, 4, func(*Scope, int) bool {
		return p.onWorker()
	})
	assert.False(t, inPlace, "InPlaceScoped keeps the body on the caller")
}

func TestScopeChildPanic(t *testing.T) {
	w := newTestPool(t, 2).Worker()

	var finished atomic.Int32
	defer func() {
		r := recover()
		require.NotNil(t, r)

		pe, ok := r.(*PanicError)
		require.True(t, ok, "child panic is re-raised as *PanicError")
		assert.Equal(t, "child failed", pe.Value)
		assert.Equal(t, int32(5), finished.Load(), "siblings finish before the panic surfaces")
	}()

	InPlaceScoped(w, 6, func(s *Scope, _ int) struct{} {
		s.Spawn(func(*Scope) { panic("child failed") })
		for range 5 {
			s.Spawn(func(*Scope) {
				time.Sleep(2 * time.Millisecond)
				finished.Add(1)
			})
		}
		return struct{}{}
	})
}

func TestScopeBodyPanicTakesPriority(t *testing.T) {
	w := newTestPool(t, 2).Worker()
	bodyErr := errors.New("body")

	var childDone atomic.Bool
	assert.PanicsWithError(t, bodyErr.Error(), func() {
		Scoped(w, 2, func(s *Scope, _ int) struct{} {
			s.Spawn(func(*Scope) { panic("child") })
			s.Spawn(func(*Scope) {
				time.Sleep(time.Millisecond)
				childDone.Store(true)
			})
			panic(bodyErr)
		})
	})
	assert.True(t, childDone.Load())
}

func TestSpawnAfterScopeExitPanics(t *testing.T) {
	w := newTestPool(t, 2).Worker()

	leaked := InPlaceScoped(w, 1, func(s *Scope, _ int) *Scope {
		return s
	})
	ran := false
	for range 3 {
		assert.PanicsWithValue(t, "multicore: Spawn called after scope exit", func() {
			leaked.Spawn(func(*Scope) { ran = true })
		})
	}
	assert.False(t, ran)
	assert.Equal(t, int64(scopeClosed), leaked.pending.Load(), "refused spawns leave no trace")
}

func TestSpawnRacingScopeExit(t *testing.T) {
	w := newTestPool(t, 2).Worker()

	for range 200 {
		var (
			scopes   = make(chan *Scope)
			returned atomic.Bool
			late     atomic.Bool
			accepted atomic.Int32
			ran      atomic.Int32
			wg       sync.WaitGroup
		)

		// A goroutine outside the scope keeps spawning until it is refused.
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := <-scopes
			for range 1000 {
				refused := func() (refused bool) {
					defer func() { refused = recover() != nil }()
					s.Spawn(func(*Scope) {
						if returned.Load() {
							late.Store(true)
						}
						ran.Add(1)
					})
					return false
				}()
				if refused {
					return
				}
				accepted.Add(1)
			}
		}()

		InPlaceScoped(w, 1, func(s *Scope, _ int) struct{} {
			scopes <- s
			return struct{}{}
		})
		returned.Store(true)
		finished := ran.Load()
		wg.Wait()

		require.False(t, late.Load(), "an accepted child ran after the scope returned")
		require.Equal(t, accepted.Load(), finished)
	}
}

func TestScopeOnClosedPoolRunsSequentially(t *testing.T) {
	p := NewPool(WithWorkers(2), WithLogger(zerolog.Nop()))
	p.Close()

	var count int
	got := Scoped(p.Worker(), 10, func(s *Scope, _ int) int {
		for range 10 {
			s.Spawn(func(*Scope) { count++ })
		}
		return 7
	})
	assert.Equal(t, 7, got)
	assert.Equal(t, 10, count)
}
