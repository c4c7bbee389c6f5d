// Package xerrors wraps errors with call-site information so the logger can
// report where a failure was produced, not only where it was logged.
//
// New and Newf record the full stack of the caller. Wrap and Wrapf record a
// single frame. EnsureTrace adds a stack to errors that arrive from
// libraries without one.
package xerrors

import (
	"errors"
	"fmt"
	"runtime"
)

const maxDepth = 64

// traced is the only wrapper type in this package. msg is empty for errors
// that only carry a stack.
type traced struct {
	msg  string
	err  error
	pcs  []uintptr
	full bool
}

func (t *traced) Error() string {
	if t.msg == "" {
		return t.err.Error()
	}
	return t.msg + ": " + t.err.Error()
}

func (t *traced) Unwrap() error { return t.err }

// PC is the frame that created or wrapped the error.
func (t *traced) PC() uintptr {
	if len(t.pcs) == 0 {
		return 0
	}
	return t.pcs[0]
}

// StackPCs is the captured stack, or nil for single-frame wraps.
func (t *traced) StackPCs() []uintptr {
	if !t.full {
		return nil
	}
	return t.pcs
}

// callers skips runtime.Callers, callers itself and the exported func.
func callers(depth int) []uintptr {
	pcs := make([]uintptr, depth)
	n := runtime.Callers(3, pcs)
	return pcs[:n]
}

func New(msg string) error {
	return &traced{err: errors.New(msg), pcs: callers(maxDepth), full: true}
}

func Newf(format string, args ...any) error {
	return &traced{err: fmt.Errorf(format, args...), pcs: callers(maxDepth), full: true}
}

// Wrap annotates err with msg and the caller's frame. nil stays nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &traced{msg: msg, err: err, pcs: callers(1)}
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &traced{msg: fmt.Sprintf(format, args...), err: err, pcs: callers(1)}
}

// EnsureTrace attaches the caller's stack unless something in the chain
// already carries one.
func EnsureTrace(err error) error {
	if err == nil || HasStack(err) {
		return err
	}
	return &traced{err: err, pcs: callers(maxDepth), full: true}
}

// HasStack reports whether any error in the chain carries a full stack.
func HasStack(err error) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if t, ok := e.(*traced); ok && t.full {
			return true
		}
	}
	return false
}
