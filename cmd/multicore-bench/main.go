// Command multicore-bench times the pool-backed kernels on random inputs and
// prints the pool counters afterwards.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/rs/zerolog"

	"github.com/baxromumarov/multicore"
	"github.com/baxromumarov/multicore/arithmetic"
)

func main() {
	var (
		logN     = flag.Uint("logn", 16, "log2 of the FFT size")
		batch    = flag.Int("batch", 32, "number of polynomials transformed by BatchFFT")
		msmSize  = flag.Int("msm", 1<<12, "number of points of the multiexp")
		workers  = flag.Int("workers", 0, "worker count (0: environment or detected cores)")
		factor   = flag.Int("spawn-factor", multicore.DefaultSpawnFactor, "spawn threshold multiplier")
		logLevel = flag.String("log-level", "warn", "zerolog level")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	opts := []multicore.Option{multicore.WithSpawnFactor(*factor), multicore.WithLogger(logger)}
	if *workers > 0 {
		opts = append(opts, multicore.WithWorkers(*workers))
	}
	if err := multicore.Init(opts...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer multicore.Shutdown()

	w := multicore.NewWorker()
	fmt.Printf("workers=%d log2=%d\n", w.NumWorkers(), w.Log2NumWorkers())

	domain := arithmetic.NewDomain(uint32(*logN))
	poly := randomVector(domain.Size())
	timed("fft", func() { domain.FFT(w, poly) })

	polys := make([][]fr.Element, *batch)
	for i := range polys {
		polys[i] = randomVector(domain.Size())
	}
	timed("batch fft", func() {
		if err := arithmetic.BatchFFT(w, domain, polys); err != nil {
			logger.Error().Err(err).Msg("batch fft failed")
		}
	})

	scalars := randomVector(*msmSize)
	_, _, g1, _ := bn254.Generators()
	bases := make([]bn254.G1Affine, *msmSize)
	for i := range bases {
		bases[i] = g1
	}
	timed("multiexp", func() { arithmetic.MultiExp(w, scalars, bases) })

	fmt.Printf("%+v\n", w.Pool().Stats())
}

func timed(label string, fn func()) {
	start := time.Now()
	fn()
	fmt.Printf("%-10s %v\n", label, time.Since(start))
}

func randomVector(n int) []fr.Element {
	v := make([]fr.Element, n)
	for i := range v {
		if _, err := v[i].SetRandom(); err != nil {
			panic(err)
		}
	}
	return v
}
