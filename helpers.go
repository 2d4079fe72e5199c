package multicore

// Parallelize splits v into ChunkSize(len(v)) chunks and calls fn on each
// chunk in parallel. start is the index of chunk[0] in v. Chunks are disjoint,
// so fn may write to its chunk freely.
//
//	multicore.Parallelize(w, coeffs, func(chunk []fr.Element, start int) {
//	    for i := range chunk {
//	        chunk[i].Mul(&chunk[i], &scale)
//	    }
//	})
func Parallelize[T any](w Worker, v []T, fn func(chunk []T, start int)) {
	ParallelizeRange(w, len(v), func(start, end int) {
		fn(v[start:end], start)
	})
}

// ParallelizeRange calls fn(start, end) in parallel over the half-open ranges
// that cover [0, n) in chunks of ChunkSize(n). It returns once every call has
// returned.
func ParallelizeRange(w Worker, n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	InPlaceScoped(w, n, func(s *Scope, chunkSize int) struct{} {
		for start := 0; start < n; start += chunkSize {
			start, end := start, min(start+chunkSize, n)
			s.Spawn(func(*Scope) {
				fn(start, end)
			})
		}
		return struct{}{}
	})
}

// Map calls fn for each item in parallel and collects the results in the
// same order as the input slice.
func Map[T, R any](w Worker, items []T, fn func(item T) R) []R {
	results := make([]R, len(items))
	Parallelize(w, items, func(chunk []T, start int) {
		for i, item := range chunk {
			results[start+i] = fn(item) // safe: chunks are disjoint
		}
	})
	return results
}
