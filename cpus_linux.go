//go:build linux

package multicore

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// detectedCPUs returns the number of logical CPUs this process may run on.
func detectedCPUs() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err == nil {
		if n := set.Count(); n > 0 {
			return n
		}
	}
	return runtime.NumCPU()
}
