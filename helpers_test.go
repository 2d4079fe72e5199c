package multicore

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelize(t *testing.T) {
	t.Run("empty slice", func(t *testing.T) {
		w := newTestPool(t, 4).Worker()
		called := false
		Parallelize(w, []int{}, func([]int, int) { called = true })
		assert.False(t, called)
	})

	t.Run("thousand elements over four workers", func(t *testing.T) {
		w := newTestPool(t, 4).Worker()

		v := make([]uint64, 1000)
		var want uint64
		for i := range v {
			v[i] = uint64(i*i + 7)
			want += v[i]
		}

		var (
			mu     sync.Mutex
			chunks = map[int]int{}
			sum    atomic.Uint64
		)
		Parallelize(w, v, func(chunk []uint64, start int) {
			var s uint64
			for _, x := range chunk {
				s += x
			}
			sum.Add(s)

			mu.Lock()
			chunks[start] = len(chunk)
			mu.Unlock()
		})

		assert.Equal(t, want, sum.Load())
		assert.Equal(t, map[int]int{0: 250, 250: 250, 500: 250, 750: 250}, chunks)
	})

	t.Run("writes stay in their chunk", func(t *testing.T) {
		w := newTestPool(t, 3).Worker()

		v := make([]int, 101)
		Parallelize(w, v, func(chunk []int, start int) {
			for i := range chunk {
				chunk[i] = start + i
			}
		})
		for i, x := range v {
			require.Equal(t, i, x)
		}
	})
}

func TestParallelizeRange(t *testing.T) {
	w := newTestPool(t, 4).Worker()

	for _, n := range []int{0, 1, 3, 4, 5, 13, 1000, 1 << 16} {
		hits := make([]atomic.Int32, n)
		ParallelizeRange(w, n, func(start, end int) {
			assert.LessOrEqual(t, end-start, w.ChunkSize(n))
			for i := start; i < end; i++ {
				hits[i].Add(1)
			}
		})
		for i := range hits {
			require.Equal(t, int32(1), hits[i].Load(), "n=%d index %d", n, i)
		}
	}
}

func TestParallelizeRangeFromWorker(t *testing.T) {
	w := newTestPool(t, 2).Worker()

	got, err := Compute(w, func() (int, error) {
		var total atomic.Int64
		ParallelizeRange(w, 100, func(start, end int) {
			total.Add(int64(end - start))
		})
		return int(total.Load()), nil
	}).Wait()
	require.NoError(t, err)
	assert.Equal(t, 100, got)
}

func TestMap(t *testing.T) {
	w := newTestPool(t, 4).Worker()

	items := make([]int, 37)
	for i := range items {
		items[i] = i
	}
	got := Map(w, items, func(x int) string {
		return string(rune('a' + x%26))
	})

	require.Len(t, got, len(items))
	for i, s := range got {
		assert.Equal(t, string(rune('a'+i%26)), s)
	}

	assert.Empty(t, Map(w, []int(nil), func(x int) int { return x }))
}
