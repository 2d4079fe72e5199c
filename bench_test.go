package multicore_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/baxromumarov/multicore"
)

func benchPool(b *testing.B, opts ...multicore.Option) multicore.Worker {
	b.Helper()
	p := multicore.NewPool(append([]multicore.Option{multicore.WithLogger(zerolog.Nop())}, opts...)...)
	b.Cleanup(p.Close)
	return p.Worker()
}

// BenchmarkScopedNoWork measures the overhead of spawning N empty tasks on a
// scope, compared to raw goroutines + WaitGroup.
func BenchmarkScopedNoWork(b *testing.B) {
	w := benchPool(b)
	for _, n := range []int{1, 10, 100, 1000} {
		b.Run(taskCountName(n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				multicore.InPlaceScoped(w, n, func(s *multicore.Scope, _ int) struct{} {
					for range n {
						s.Spawn(func(*multicore.Scope) {})
					}
					return struct{}{}
				})
			}
		})
	}
}

// BenchmarkRawGoroutineWaitGroup is the baseline: raw go + sync.WaitGroup.
func BenchmarkRawGoroutineWaitGroup(b *testing.B) {
	for _, n := range []int{1, 10, 100, 1000} {
		b.Run(taskCountName(n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				var wg sync.WaitGroup
				for range n {
					wg.Add(1)
					go func() {
						defer wg.Done()
					}()
				}
				wg.Wait()
			}
		})
	}
}

// BenchmarkComputeBacklog submits many detached tasks with a small spawn
// threshold, so most of them take the install path.
func BenchmarkComputeBacklog(b *testing.B) {
	for _, factor := range []int{1, multicore.DefaultSpawnFactor, 64} {
		b.Run(fmt.Sprintf("factor=%d", factor), func(b *testing.B) {
			w := benchPool(b, multicore.WithSpawnFactor(factor))
			waiters := make([]*multicore.Waiter[int], 1000)
			b.ReportAllocs()
			for b.Loop() {
				for i := range waiters {
					waiters[i] = multicore.Compute(w, func() (int, error) {
						return i, nil
					})
				}
				for _, wt := range waiters {
					if _, err := wt.Wait(); err != nil {
						b.Fatal(err)
					}
				}
			}
		})
	}
}

func BenchmarkParallelizeRange(b *testing.B) {
	w := benchPool(b)
	v := make([]uint64, 1<<20)
	b.ReportAllocs()
	for b.Loop() {
		multicore.Parallelize(w, v, func(chunk []uint64, start int) {
			for i := range chunk {
				chunk[i] += uint64(start + i)
			}
		})
	}
}

func taskCountName(n int) string {
	return fmt.Sprintf("tasks=%d", n)
}
