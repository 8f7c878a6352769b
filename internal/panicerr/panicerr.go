// Package panicerr converts a recovered panic into a plain error. Run
// recovers in the calling goroutine: the compiler and interpreter it
// wraps are both single-threaded, so there is no worker to recover
// inside of.
package panicerr

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Error wraps a recovered panic value as an error, retaining the stack
// trace captured at recovery time.
type Error struct {
	Value interface{}
	Stack []byte
}

func (e *Error) Error() string {
	if err, ok := e.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap lets errors.As/errors.Is see through to the original panic value
// when it was itself an error (e.g. a *diag.Fatal or vm.HaltError).
func (e *Error) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Run calls f and recovers any panic, returning it as an *Error. A plain
// (non-panicking) error return from f is passed through unchanged.
func Run(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Value: r, Stack: debug.Stack()}
		}
	}()
	return f()
}

// As reports whether err (or any error it wraps) is a *Error.
func As(err error) (*Error, bool) {
	var pe *Error
	ok := errors.As(err, &pe)
	return pe, ok
}
