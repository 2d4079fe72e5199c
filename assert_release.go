//go:build !multicore_debug

package multicore

// debugAssertions enables panics for misuse that is otherwise only logged.
// Build with -tags multicore_debug to turn it on.
const debugAssertions = false
