// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package producer

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"vawter.tech/streamcancel/stream"
	"vawter.tech/streamcancel/task"
)

// State describes the lifecycle of a [Run].
//
//	Idle -> Running -> {Exhausted, Cancelled} -> Finished
type State int32

const (
	// Idle means the work loop has not started.
	Idle State = iota
	// Running means the work loop is producing values.
	Running
	// Exhausted means the work loop produced every value.
	Exhausted
	// Cancelled means the work loop observed cancellation.
	Cancelled
	// Finished means the stream has been finished. No further
	// transitions occur.
	Finished
)

// String is for debugging use only.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Exhausted:
		return "exhausted"
	case Cancelled:
		return "cancelled"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// runState is shared with the work loop. It deliberately holds no
// reference to the consumer-side stream.
type runState struct {
	outcome atomic.Int32
	state   atomic.Int32
}

func (s *runState) set(state State) { s.state.Store(int32(state)) }

// finish records the outcome before entering the terminal state.
func (s *runState) finish(outcome State) {
	s.outcome.Store(int32(outcome))
	s.set(outcome)
}

// A Run is one production lifecycle, created by [Producer.Start]. Each
// Run owns its stream and its task handle, so concurrent runs of the
// same Producer never share mutable state.
type Run struct {
	handle *task.Handle
	id     uuid.UUID
	state  *runState
	stream *stream.Channel[int]
}

// Cancel asks the work loop to stop without disengaging from the
// stream. Values already sent may still be received, followed by
// end-of-sequence.
func (r *Run) Cancel() { r.handle.Cancel() }

// Done returns a channel that is closed once the work loop has
// returned.
func (r *Run) Done() <-chan struct{} { return r.handle.Done() }

// ID returns a unique identifier for the Run.
func (r *Run) ID() uuid.UUID { return r.id }

// Outcome returns [Exhausted] or [Cancelled] once the work loop has
// ended. Until then, it returns [Idle].
func (r *Run) Outcome() State { return State(r.state.outcome.Load()) }

// State returns the current lifecycle state.
func (r *Run) State() State { return State(r.state.state.Load()) }

// Stream returns the consumer half of the Run's stream.
func (r *Run) Stream() *stream.Channel[int] { return r.stream }

// Wait blocks until the work loop has returned and reports whether it
// was exhausted or cancelled. If the argument's Done channel closes
// first, its Err value is returned instead.
func (r *Run) Wait(ctx context.Context) (State, error) {
	if err := r.handle.Wait(ctx); err != nil {
		return r.Outcome(), err
	}
	return r.Outcome(), nil
}

// String is for debugging use only.
func (r *Run) String() string {
	return fmt.Sprintf("run %s (%s)", r.id, r.State())
}
