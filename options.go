package multicore

import (
	"os"
	"strconv"

	"github.com/rs/zerolog"
)

// DefaultSpawnFactor is the multiple of the worker count above which detached
// submissions stop being queued and run in place instead.
const DefaultSpawnFactor = 4

// Environment variables read by [NewPool] when no explicit option is given.
const (
	EnvNumWorkers  = "MULTICORE_NUM_WORKERS"
	EnvSpawnFactor = "MULTICORE_SPAWN_FACTOR"

	// EnvLegacyNumCPUs is accepted as an alias of EnvNumWorkers.
	EnvLegacyNumCPUs = "BELLMAN_NUM_CPUS"
)

type config struct {
	workers     int
	spawnFactor int
	logger      zerolog.Logger
}

// spawnThreshold is the in-flight count above which the governor switches
// detached submissions to the install strategy.
func (c config) spawnThreshold() int64 {
	return int64(c.workers) * int64(c.spawnFactor)
}

// Option configures a [Pool].
type Option func(*config)

func defaultConfig() config {
	logger := defaultLogger()
	return config{
		workers:     workersFromEnv(logger),
		spawnFactor: spawnFactorFromEnv(logger),
		logger:      logger,
	}
}

// WithWorkers sets the number of worker goroutines, overriding the
// environment and the detected core count.
// It panics if n <= 0.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n <= 0 {
			panic("multicore: worker count must be positive")
		}
		c.workers = n
	}
}

// WithSpawnFactor sets K in the spawn threshold workers × K.
// It panics if k <= 0.
func WithSpawnFactor(k int) Option {
	return func(c *config) {
		if k <= 0 {
			panic("multicore: spawn factor must be positive")
		}
		c.spawnFactor = k
	}
}

// WithLogger replaces the pool logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

func defaultLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()
}

func workersFromEnv(logger zerolog.Logger) int {
	for _, key := range []string{EnvNumWorkers, EnvLegacyNumCPUs} {
		if n, ok := positiveEnv(logger, key); ok {
			return n
		}
	}
	return detectedCPUs()
}

func spawnFactorFromEnv(logger zerolog.Logger) int {
	if k, ok := positiveEnv(logger, EnvSpawnFactor); ok {
		return k
	}
	return DefaultSpawnFactor
}

func positiveEnv(logger zerolog.Logger, key string) (int, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		logger.Warn().Str("env", key).Str("value", raw).Msg("ignoring invalid value, expected a positive integer")
		return 0, false
	}
	return n, true
}
