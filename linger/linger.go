// Copyright 2025 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package linger contains a utility for reporting on where lingering
// tasks were originally started.
package linger

import (
	"runtime"
	"sync"
	"sync/atomic"

	"vawter.tech/streamcancel/task"
)

// This value is sensitive to the code structure.
const callersOffset = 3

// NewRecorder constructs a [Recorder] that samples the call stack at the
// requested depth. A depth of 1 will record the location at which
// [task.Group.Go] was executed.
func NewRecorder(depth int) *Recorder {
	return &Recorder{depth: depth}
}

// A Recorder can be attached to a [task.Group] via [task.WithMiddleware]
// to record the call stack where [task.Group.Go] has been called. It
// is primarily useful for testing scenarios, to ensure that there are
// no lingering goroutines after a producer has been closed.
type Recorder struct {
	counter atomic.Uintptr
	data    sync.Map // uintptr -> *sample
	depth   int
}

type sample struct {
	name string
	pcs  []uintptr
}

// Callers returns a snapshot of the caller stacks associated with any
// tasks that are currently running.
func (r *Recorder) Callers() [][]uintptr {
	var ret [][]uintptr
	r.data.Range(func(_, value any) bool {
		ret = append(ret, value.(*sample).pcs)
		return true
	})
	return ret
}

// Names returns the names of the tasks that are currently running, in
// no particular order.
func (r *Recorder) Names() []string {
	var ret []string
	r.data.Range(func(_, value any) bool {
		ret = append(ret, value.(*sample).name)
		return true
	})
	return ret
}

func (r *Recorder) samples() []*sample {
	var ret []*sample
	r.data.Range(func(_, value any) bool {
		ret = append(ret, value.(*sample))
		return true
	})
	return ret
}

// Len returns the number of tasks that are currently running.
func (r *Recorder) Len() int {
	n := 0
	r.data.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Middleware is a [task.Middleware] that samples the caller of
// [task.Group.Go].
func (r *Recorder) Middleware(name string, fn task.Func) task.Func {
	pc := make([]uintptr, r.depth)
	pc = pc[:runtime.Callers(callersOffset, pc)]

	id := r.counter.Add(1)
	r.data.Store(id, &sample{name: name, pcs: pc})

	return func(h *task.Handle) error {
		defer r.data.Delete(id)
		return fn(h)
	}
}
