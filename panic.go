package multicore

import (
	"fmt"
	"runtime/debug"
)

// PanicError is a recovered task panic together with the stack of the
// goroutine that panicked.
//
// Detached tasks hand it back as the error of [Waiter.Wait]. Scoped tasks
// re-raise it when their scope exits, after every task of the scope is done.
type PanicError struct {
	Value any    // value passed to panic
	Stack string // stack of the panicking goroutine
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("multicore: task panicked: %v\n\n%s", e.Value, e.Stack)
}

// Unwrap exposes the panic value to errors.Is and errors.As when it is an
// error itself.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// newPanicError wraps a recovered value. A *PanicError re-raised by a nested
// scope keeps the stack of the original panic.
func newPanicError(v any) *PanicError {
	if pe, ok := v.(*PanicError); ok {
		return pe
	}
	return &PanicError{Value: v, Stack: string(debug.Stack())}
}
