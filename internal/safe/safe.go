// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package safe contains utilities for executing user-provided
// callbacks, such as task bodies and stream termination hooks.
package safe

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

const captureDepth = 32

// A RecoveredError associates a panic value with the stack at which
// it was recovered.
type RecoveredError struct {
	Err   error
	Stack []uintptr
}

// Error implements error.
func (e *RecoveredError) Error() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "recovered: %v\n", e.Err)
	frames := runtime.CallersFrames(e.Stack)
	for {
		frame, more := frames.Next()
		_, _ = fmt.Fprintf(&sb, "%s ( %s:%d )\n", frame.Function, frame.File, frame.Line)
		if !more {
			return sb.String()
		}
	}
}

// String is for debugging use only.
func (e *RecoveredError) String() string { return e.Error() }

// Unwrap returns the enclosed error.
func (e *RecoveredError) Unwrap() error { return e.Err }

// Call executes the function. If the function panics, a
// [RecoveredError] will be returned.
func Call(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(nil, r)
		}
	}()
	fn()
	return nil
}

// CallE executes the function. If the function panics, the recovered
// value is joined with any error already returned and wrapped in a
// [RecoveredError].
func CallE(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(err, r)
		}
	}()
	return fn()
}

// recovered must be called directly from a deferred function. The
// captured stack omits this function and the deferred closure.
func recovered(prior error, r any) error {
	var err error
	if rErr, ok := r.(error); ok {
		err = rErr
	} else {
		err = fmt.Errorf("panic: %v", r)
	}
	stack := make([]uintptr, captureDepth)
	stack = stack[:runtime.Callers(3, stack)]
	return &RecoveredError{
		Err:   errors.Join(prior, err),
		Stack: stack,
	}
}
