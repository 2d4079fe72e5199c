package arithmetic

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/baxromumarov/multicore"
)

// partials returns one slot per chunk of a ParallelizeRange over n elements.
func partials[T any](w multicore.Worker, n int) ([]T, int) {
	return make([]T, w.NumSpawnedTasks(n)), w.ChunkSize(n)
}

// EvalPolynomial evaluates sum_i coeffs[i]·x^i. Each chunk runs Horner's rule
// on its coefficients and is shifted by x^start before the partial sums are
// added up.
func EvalPolynomial(w multicore.Worker, coeffs []fr.Element, x fr.Element) fr.Element {
	var res fr.Element
	n := len(coeffs)
	if n == 0 {
		return res
	}

	sums, chunkSize := partials[fr.Element](w, n)
	multicore.ParallelizeRange(w, n, func(start, end int) {
		var acc fr.Element
		for i := end - 1; i >= start; i-- {
			acc.Mul(&acc, &x).Add(&acc, &coeffs[i])
		}
		var shift fr.Element
		shift.Exp(x, bigUint(uint64(start)))
		sums[start/chunkSize].Mul(&acc, &shift)
	})

	for i := range sums {
		res.Add(&res, &sums[i])
	}
	return res
}

// InnerProduct returns sum_i a[i]·b[i]. It panics if the lengths differ.
func InnerProduct(w multicore.Worker, a, b []fr.Element) fr.Element {
	if len(a) != len(b) {
		panic(fmt.Sprintf("arithmetic: inner product of vectors of length %d and %d", len(a), len(b)))
	}

	var res fr.Element
	n := len(a)
	if n == 0 {
		return res
	}

	sums, chunkSize := partials[fr.Element](w, n)
	multicore.ParallelizeRange(w, n, func(start, end int) {
		var acc, t fr.Element
		for i := start; i < end; i++ {
			t.Mul(&a[i], &b[i])
			acc.Add(&acc, &t)
		}
		sums[start/chunkSize] = acc
	})

	for i := range sums {
		res.Add(&res, &sums[i])
	}
	return res
}

// BatchInvert replaces every non-zero element of v by its inverse, using one
// field inversion per chunk. Zero elements are left untouched; their
// positions are returned.
func BatchInvert(w multicore.Worker, v []fr.Element) *bitset.BitSet {
	n := len(v)
	zeros := bitset.New(uint(n))
	if n == 0 {
		return zeros
	}

	chunkZeros, chunkSize := partials[*bitset.BitSet](w, n)
	multicore.ParallelizeRange(w, n, func(start, end int) {
		chunk := v[start:end]
		skip := bitset.New(uint(len(chunk)))

		// prefix[i] = product of the non-zero chunk[0..i)
		prefix := make([]fr.Element, len(chunk))
		var acc fr.Element
		acc.SetOne()
		for i := range chunk {
			prefix[i] = acc
			if chunk[i].IsZero() {
				skip.Set(uint(i))
				continue
			}
			acc.Mul(&acc, &chunk[i])
		}

		acc.Inverse(&acc)
		var t fr.Element
		for i := len(chunk) - 1; i >= 0; i-- {
			if skip.Test(uint(i)) {
				continue
			}
			t.Mul(&acc, &prefix[i])
			acc.Mul(&acc, &chunk[i])
			chunk[i] = t
		}

		chunkZeros[start/chunkSize] = skip
	})

	for c, skip := range chunkZeros {
		for i, ok := skip.NextSet(0); ok; i, ok = skip.NextSet(i + 1) {
			zeros.Set(uint(c*chunkSize) + i)
		}
	}
	return zeros
}
