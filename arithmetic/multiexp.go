package arithmetic

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/baxromumarov/multicore"
)

// MultiExp returns sum_i scalars[i]·bases[i]. Every chunk of pairs is summed
// by a separate task with plain double-and-add; the chunk sums are then
// combined. It panics if the lengths differ.
func MultiExp(w multicore.Worker, scalars []fr.Element, bases []bn254.G1Affine) bn254.G1Jac {
	if len(scalars) != len(bases) {
		panic(fmt.Sprintf("arithmetic: multiexp of %d scalars and %d bases", len(scalars), len(bases)))
	}

	var res bn254.G1Jac
	n := len(scalars)
	if n == 0 {
		return res
	}

	sums, chunkSize := partials[bn254.G1Jac](w, n)
	multicore.ParallelizeRange(w, n, func(start, end int) {
		var (
			acc, term bn254.G1Jac
			s         big.Int
		)
		for i := start; i < end; i++ {
			term.FromAffine(&bases[i])
			term.ScalarMultiplication(&term, scalars[i].BigInt(&s))
			acc.AddAssign(&term)
		}
		sums[start/chunkSize] = acc
	})

	for i := range sums {
		res.AddAssign(&sums[i])
	}
	return res
}

func bigUint(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}
