//go:build multicore_debug

package multicore

const debugAssertions = true
