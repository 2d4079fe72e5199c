//go:build !linux

package multicore

import "runtime"

func detectedCPUs() int {
	return runtime.NumCPU()
}
