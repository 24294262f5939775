// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package stream contains a single-producer, single-consumer handoff
// that notifies the producer when the consumer goes away.
//
// A stream has two halves. The [Sink] is held by the producer and
// accepts values without ever blocking. The [Channel] is held by the
// consumer, which receives values with [Channel.Next] or ranges over
// [Channel.All]. The producer registers a callback with
// [Sink.OnTerminate] that fires exactly once when the consumer
// disengages: by draining a finished stream, by cancelling, or by
// discarding the Channel.
//
// The termination callback runs on whichever goroutine ended
// consumption, or on a runtime cleanup goroutine for a discarded
// Channel. It should only signal, e.g. by cancelling a
// [vawter.tech/streamcancel/task.Handle] that it captured when it was
// registered.
package stream

import (
	"context"
	"io"
	"iter"
	"runtime"
	"sync"

	"vawter.tech/streamcancel/internal/safe"
)

// New constructs the two halves of a stream. The zero [Policy] keeps
// the single newest value.
func New[T any](policy Policy) (*Sink[T], *Channel[T]) {
	c := &core[T]{
		policy: policy.sanitize(),
		wake:   make(chan struct{}, 1),
	}
	ch := &Channel[T]{core: c}
	// If the consumer drops the Channel on the floor, the producer
	// still needs to hear about it. The cleanup must not refer to ch.
	runtime.AddCleanup(ch, func(c *core[T]) { c.terminate(Discarded) }, c)
	return &Sink[T]{core: c}, ch
}

// A Sink is the producer half of a stream. All methods are safe for
// concurrent use.
type Sink[T any] struct {
	core *core[T]
}

// Finish marks the end of the stream. Values already buffered are
// still delivered, after which the consumer observes end-of-sequence.
// Finish returns true only for the call that finished the stream.
func (s *Sink[T]) Finish() bool { return s.core.finish() }

// OnTerminate registers a callback that is invoked once the consumer
// disengages from the stream. A later call replaces a callback that
// has not yet run. If the stream has already terminated, the callback
// is invoked immediately with the recorded reason.
//
// Panics within the callback are recovered and discarded.
func (s *Sink[T]) OnTerminate(fn func(Reason)) { s.core.onTerminate(fn) }

// Send offers a value to the consumer without blocking. Sending after
// Finish, or after the consumer has disengaged, is a no-op.
func (s *Sink[T]) Send(v T) SendResult { return s.core.send(v) }

// A Channel is the consumer half of a stream. It must not be received
// from by more than one goroutine at a time, although Cancel and
// Discard may be called from anywhere.
type Channel[T any] struct {
	core *core[T]
}

// All returns a sequence over the stream's values. Leaving the loop
// early, panicking, or the context ending will cancel the stream.
func (c *Channel[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		// A no-op if the stream was drained.
		defer c.Cancel()
		for {
			v, err := c.Next(ctx)
			if err != nil {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Cancel stops consumption. Pending values are discarded and the
// termination callback, if not already invoked, receives [Cancelled].
func (c *Channel[T]) Cancel() { c.core.terminate(Cancelled) }

// Discard is equivalent to Cancel, except that the termination
// callback receives [Discarded].
func (c *Channel[T]) Discard() { c.core.terminate(Discarded) }

// Next blocks until a value is available, returning [io.EOF] once the
// stream has finished and been drained or after the stream has been
// cancelled. If the context ends first, its error is returned and the
// stream remains usable.
func (c *Channel[T]) Next(ctx context.Context) (T, error) {
	v, err := c.core.next(ctx)
	// The Channel must not look discarded while blocked in next.
	runtime.KeepAlive(c)
	return v, err
}

// Policy returns the buffering policy of the stream.
func (c *Channel[T]) Policy() Policy { return c.core.policy }

// core is the state shared between both halves.
type core[T any] struct {
	policy Policy
	wake   chan struct{} // Capacity 1, single consumer.

	mu struct {
		sync.Mutex
		buf        []T
		callback   func(Reason)
		finished   bool
		reason     Reason
		terminated bool
	}
}

func (c *core[T]) finish() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mu.finished || c.mu.terminated {
		return false
	}
	c.mu.finished = true
	c.notify()
	return true
}

// next delivers the oldest pending value.
func (c *core[T]) next(ctx context.Context) (T, error) {
	var zero T
	for {
		c.mu.Lock()
		if c.mu.terminated {
			c.mu.Unlock()
			return zero, io.EOF
		}
		if len(c.mu.buf) > 0 {
			v := c.mu.buf[0]
			c.mu.buf[0] = zero
			c.mu.buf = c.mu.buf[1:]
			c.mu.Unlock()
			return v, nil
		}
		if c.mu.finished {
			fn := c.terminateLocked(Finished)
			c.mu.Unlock()
			invoke(fn, Finished)
			return zero, io.EOF
		}
		c.mu.Unlock()

		select {
		case <-c.wake:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// notify must be called with the mutex held.
func (c *core[T]) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *core[T]) onTerminate(fn func(Reason)) {
	c.mu.Lock()
	if !c.mu.terminated {
		c.mu.callback = fn
		c.mu.Unlock()
		return
	}
	reason := c.mu.reason
	c.mu.Unlock()
	// We don't execute user code while holding a mutex.
	invoke(fn, reason)
}

func (c *core[T]) send(v T) SendResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mu.finished || c.mu.terminated {
		return Terminated
	}
	defer c.notify()

	if c.policy.kind == unbounded || len(c.mu.buf) < c.policy.limit {
		c.mu.buf = append(c.mu.buf, v)
		return Enqueued
	}
	if c.policy.kind == keepOldest {
		return Dropped
	}
	// Overwrite in place for the single-slot case.
	if c.policy.limit == 1 {
		c.mu.buf[0] = v
		return Dropped
	}
	var zero T
	c.mu.buf[0] = zero
	c.mu.buf = append(c.mu.buf[1:], v)
	return Dropped
}

// terminate is a one-shot. Racing callers are safe, since only the
// first one observes a non-terminated state.
func (c *core[T]) terminate(reason Reason) {
	c.mu.Lock()
	fn := c.terminateLocked(reason)
	c.mu.Unlock()
	invoke(fn, reason)
}

// terminateLocked returns the callback to invoke outside the mutex.
func (c *core[T]) terminateLocked(reason Reason) func(Reason) {
	if c.mu.terminated {
		return nil
	}
	c.mu.terminated = true
	c.mu.reason = reason
	c.mu.buf = nil
	fn := c.mu.callback
	c.mu.callback = nil
	// Wake a receiver blocked in next.
	c.notify()
	return fn
}

func invoke(fn func(Reason), reason Reason) {
	if fn == nil {
		return
	}
	_ = safe.Call(func() { fn(reason) })
}
