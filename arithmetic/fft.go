// Package arithmetic holds the vector and polynomial kernels of the prover
// that run on the multicore pool: radix-2 FFTs, multi-scalar multiplication,
// polynomial evaluation and batch inversion over the bn254 scalar field.
package arithmetic

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"

	"github.com/baxromumarov/multicore"
)

// Domain is a multiplicative subgroup of size 2^LogN used as FFT evaluation
// domain.
type Domain struct {
	LogN  uint32
	inner *fft.Domain
}

// NewDomain returns the evaluation domain of size 2^logN.
func NewDomain(logN uint32) *Domain {
	return &Domain{
		LogN:  logN,
		inner: fft.NewDomain(uint64(1) << logN),
	}
}

// Size returns the number of points of the domain.
func (d *Domain) Size() int {
	return 1 << d.LogN
}

// Omega returns the generator of the domain.
func (d *Domain) Omega() fr.Element {
	return d.inner.Generator
}

// FFT evaluates the polynomial with coefficients a on the domain, in place.
func (d *Domain) FFT(w multicore.Worker, a []fr.Element) {
	FFT(w, a, d.inner.Generator, d.LogN)
}

// IFFT interpolates the evaluations a back to coefficients, in place.
func (d *Domain) IFFT(w multicore.Worker, a []fr.Element) {
	FFT(w, a, d.inner.GeneratorInv, d.LogN)

	nInv := d.inner.CardinalityInv
	multicore.Parallelize(w, a, func(chunk []fr.Element, _ int) {
		for i := range chunk {
			chunk[i].Mul(&chunk[i], &nInv)
		}
	})
}

// FFT computes a[k] = sum_j a[j]·omega^(jk) in place, where omega is a
// primitive 2^logN-th root of unity. Above the pool size every butterfly
// stage is split across the workers.
func FFT(w multicore.Worker, a []fr.Element, omega fr.Element, logN uint32) {
	if len(a) != 1<<logN {
		panic(fmt.Sprintf("arithmetic: FFT of %d elements with logN=%d", len(a), logN))
	}
	if logN == 0 {
		return
	}

	if logN <= w.Log2NumWorkers() {
		serialFFT(a, omega, logN)
		return
	}
	parallelFFT(w, a, omega, logN)
}

func serialFFT(a []fr.Element, omega fr.Element, logN uint32) {
	n := len(a)
	bitReverse(a, 0, n, logN)
	twiddles := powers(omega, n/2)

	for m := 1; m < n; m <<= 1 {
		butterflies(a, twiddles, m, n/(2*m), 0, n/2)
	}
}

func parallelFFT(w multicore.Worker, a []fr.Element, omega fr.Element, logN uint32) {
	n := len(a)
	multicore.ParallelizeRange(w, n, func(start, end int) {
		bitReverse(a, start, end, logN)
	})

	twiddles := make([]fr.Element, n/2)
	multicore.Parallelize(w, twiddles, func(chunk []fr.Element, start int) {
		var cur fr.Element
		cur.Exp(omega, big.NewInt(int64(start)))
		for i := range chunk {
			chunk[i] = cur
			cur.Mul(&cur, &omega)
		}
	})

	for m := 1; m < n; m <<= 1 {
		stride := n / (2 * m)
		multicore.ParallelizeRange(w, n/2, func(start, end int) {
			butterflies(a, twiddles, m, stride, start, end)
		})
	}
}

// butterflies applies the butterflies [from, to) of the stage merging blocks
// of size m. Butterfly j touches a[lo] and a[lo+m] only, so disjoint ranges of
// j can run concurrently.
func butterflies(a, twiddles []fr.Element, m, stride, from, to int) {
	var t fr.Element
	for j := from; j < to; j++ {
		k, i := j/m, j%m
		lo := 2*k*m + i
		hi := lo + m

		t.Mul(&a[hi], &twiddles[i*stride])
		a[hi].Sub(&a[lo], &t)
		a[lo].Add(&a[lo], &t)
	}
}

// bitReverse swaps every pair (i, rev(i)) with i in [from, to) and i < rev(i).
// Each pair is owned by its smaller index, so ranges can run concurrently.
func bitReverse(a []fr.Element, from, to int, logN uint32) {
	shift := 64 - logN
	for i := from; i < to; i++ {
		j := int(bits.Reverse64(uint64(i)) >> shift)
		if i < j {
			a[i], a[j] = a[j], a[i]
		}
	}
}

func powers(x fr.Element, n int) []fr.Element {
	res := make([]fr.Element, n)
	if n == 0 {
		return res
	}
	res[0].SetOne()
	for i := 1; i < n; i++ {
		res[i].Mul(&res[i-1], &x)
	}
	return res
}

// BatchFFT runs d.FFT on every polynomial as a separate detached task and
// waits for all of them. The polynomials are transformed in place.
//
// BatchFFT blocks on the results, so it must not be called from a pool worker.
func BatchFFT(w multicore.Worker, d *Domain, polys [][]fr.Element) error {
	for i, poly := range polys {
		if len(poly) != d.Size() {
			return fmt.Errorf("arithmetic: polynomial %d has %d coefficients, domain size is %d", i, len(poly), d.Size())
		}
	}

	waiters := make([]*multicore.Waiter[struct{}], len(polys))
	for i, poly := range polys {
		waiters[i] = multicore.Compute(w, func() (struct{}, error) {
			d.FFT(w, poly)
			return struct{}{}, nil
		})
	}

	var errs []error
	for i, wt := range waiters {
		if _, err := wt.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("arithmetic: fft of polynomial %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
