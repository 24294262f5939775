// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package stream

import "fmt"

type policyKind int

const (
	keepNewest policyKind = iota
	keepOldest
	unbounded
)

// A Policy determines what happens when a value is sent while the
// buffer is full. The zero value is equivalent to KeepNewest(1).
type Policy struct {
	kind  policyKind
	limit int
}

// KeepNewest retains at most n pending values. Sending to a full
// buffer drops the oldest pending value. KeepNewest panics if n is
// less than one.
func KeepNewest(n int) Policy {
	if n < 1 {
		panic(fmt.Errorf("buffer limit must be positive: %d", n))
	}
	return Policy{kind: keepNewest, limit: n}
}

// KeepOldest retains at most n pending values. Sending to a full
// buffer drops the value being sent. KeepOldest panics if n is less
// than one.
func KeepOldest(n int) Policy {
	if n < 1 {
		panic(fmt.Errorf("buffer limit must be positive: %d", n))
	}
	return Policy{kind: keepOldest, limit: n}
}

// Unbounded retains every pending value.
func Unbounded() Policy {
	return Policy{kind: unbounded}
}

// String is for debugging use only.
func (p Policy) String() string {
	p = p.sanitize()
	switch p.kind {
	case keepOldest:
		return fmt.Sprintf("keep-oldest(%d)", p.limit)
	case unbounded:
		return "unbounded"
	default:
		return fmt.Sprintf("keep-newest(%d)", p.limit)
	}
}

func (p Policy) sanitize() Policy {
	if p.kind != unbounded && p.limit < 1 {
		p.limit = 1
	}
	return p
}

// A SendResult reports what happened to a value passed to [Sink.Send].
type SendResult int

const (
	// Enqueued means that the value was buffered without displacing
	// another value.
	Enqueued SendResult = iota
	// Dropped means that the buffer was full and the [Policy]
	// discarded a value. Under KeepNewest the discarded value is the
	// oldest pending one; under KeepOldest it is the value being sent.
	Dropped
	// Terminated means that the stream has finished or its consumer
	// has gone away. The value was ignored.
	Terminated
)

// String is for debugging use only.
func (r SendResult) String() string {
	switch r {
	case Enqueued:
		return "enqueued"
	case Dropped:
		return "dropped"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("SendResult(%d)", int(r))
	}
}

// A Reason describes why the consuming side of a stream disengaged.
type Reason int

const (
	// Finished means the consumer drained a stream that the producer
	// had finished.
	Finished Reason = iota
	// Cancelled means the consumer stopped receiving early.
	Cancelled
	// Discarded means the consumer abandoned the stream without
	// draining or cancelling it.
	Discarded
)

// String is for debugging use only.
func (r Reason) String() string {
	switch r {
	case Finished:
		return "finished"
	case Cancelled:
		return "cancelled"
	case Discarded:
		return "discarded"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}
