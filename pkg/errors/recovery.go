// Package errors provides error handling utilities for lgbm.
//
// This file contains panic recovery helpers. Training and prediction code runs
// user-supplied data through index arithmetic; a bug there must surface as an
// error from the public API rather than crash the host process.

package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
)

// PanicError represents an error that was created from a recovered panic.
type PanicError struct {
	// PanicValue is the original value passed to panic()
	PanicValue interface{}

	// StackTrace contains the stack trace at the time of panic
	StackTrace string

	// Operation identifies where the panic was recovered
	Operation string
}

// Error implements the error interface for PanicError.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// String provides detailed information including stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// NewPanicError creates a new PanicError with the given operation context and panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover converts a panic into an error. Use it with defer and a named error
// return:
//
//	func (b *Booster) UpdateOneIter() (finished bool, err error) {
//	    defer errors.Recover(&err, "Booster.UpdateOneIter")
//	    ...
//	}
//
// If the function already set an error, the panic is wrapped around it so
// errors.Is still finds the original. A panic whose value is already a
// *PanicError (re-raised from a worker goroutine) keeps its stack trace.
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		if *err != nil {
			*err = errors.Wrapf(*err, "panic in %s: %v", operation, r)
			return
		}
		if pe, ok := r.(*PanicError); ok {
			*err = errors.Wrapf(pe, "in %s", operation)
			return
		}
		*err = NewPanicError(operation, r)
	}
}

// SafeExecute executes fn and converts any panic into a PanicError.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
