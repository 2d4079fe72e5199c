// Package profiling wraps benchmarks with optional CPU profiling and
// execution tracing, written under dir/profiling/.
package profiling

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/trace"
	"testing"

	"github.com/pkg/profile"
)

// ProfileTrace runs fn between b.StartTimer and b.StopTimer, optionally
// recording a pprof CPU profile and a runtime trace named after the benchmark.
func ProfileTrace(b *testing.B, profiled, traced bool, dir string, fn func()) {
	b.Helper()

	base := filepath.Join(dir, "profiling")
	if profiled || traced {
		if err := os.MkdirAll(base, 0o755); err != nil {
			b.Fatalf("profiling: %v", err)
		}
	}

	if traced {
		f, err := os.Create(filepath.Join(base, fmt.Sprintf("%v-trace.out", filepath.Base(b.Name()))))
		if err != nil {
			b.Fatalf("profiling: %v", err)
		}
		defer f.Close()

		if err := trace.Start(f); err != nil {
			b.Fatalf("profiling: %v", err)
		}
		defer trace.Stop()
	}

	if profiled {
		pprof := profile.Start(
			profile.ProfilePath(filepath.Join(base, fmt.Sprintf("%v-pprof", filepath.Base(b.Name())))),
			profile.Quiet,
			profile.NoShutdownHook,
		)
		defer pprof.Stop()
	}

	b.StartTimer()
	defer b.StopTimer()

	fn()
}
