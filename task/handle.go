// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package task provides a small structured-concurrency executor.
//
// A [Group] launches tasks, each of which is represented by a
// [Handle]. The Handle acts as a cancellation token: it may be copied
// freely and cancelled from any goroutine, and the task polls it at
// points of its choosing. Cancellation is always cooperative.
//
//	g := task.NewGroup(ctx)
//	h, err := g.Go("worker", func(h *task.Handle) error {
//	    for !h.IsCancelled() {
//	        if err := h.Sleep(time.Second); err != nil {
//	            return nil
//	        }
//	    }
//	    return nil
//	})
//	...
//	h.Cancel()
//	g.Stop()
//	err = g.Wait(ctx)
package task

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCancelled is the cause reported by a [Handle] after
	// [Handle.Cancel] has been called.
	ErrCancelled = errors.New("cancelled")
	// ErrStopped is returned by [Group.Go] once the Group is stopping,
	// and is the cause reported by handles cancelled by [Group.Stop].
	ErrStopped = errors.New("stopped")

	// errExited is the cause used to release a handle's context once
	// its task has returned. It is never reported as a cancellation.
	errExited = errors.New("task exited")
)

// Func is the signature of a task body. The Handle passed to the Func
// is the same value returned from [Group.Go].
type Func func(h *Handle) error

// A Handle refers to a launched task. Copying the pointer never
// duplicates the underlying work, so a Handle may be captured by
// callbacks that run on other goroutines.
//
// All methods are safe for concurrent use. A nil Handle may be
// cancelled and polled: Cancel is a no-op, it never reports
// cancellation, and Context returns a background context. Done, Name,
// and Wait require a Handle returned by [Group.Go].
type Handle struct {
	name   string
	ctx    context.Context
	cancel context.CancelCauseFunc
	done   chan struct{}
	err    error // Written before done is closed.
}

func newHandle(parent context.Context, name string) *Handle {
	ctx, cancel := context.WithCancelCause(parent)
	return &Handle{
		name:   name,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Cancel requests that the task stop. It does not wait for the task to
// exit; use [Handle.Wait] for that.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.cancel(ErrCancelled)
}

// Cancelled returns a channel that is closed once the task has been
// cancelled or has exited.
func (h *Handle) Cancelled() <-chan struct{} {
	if h == nil {
		return nil
	}
	return h.ctx.Done()
}

// Context returns a context that is canceled along with the Handle.
// It is suitable for passing to blocking calls made by the task.
func (h *Handle) Context() context.Context {
	if h == nil {
		return context.Background()
	}
	return h.ctx
}

// Done returns a channel that is closed once the task has returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the cancellation cause, or nil if the task has not been
// cancelled. A task that exits on its own is not considered cancelled.
func (h *Handle) Err() error {
	if h == nil || h.ctx.Err() == nil {
		return nil
	}
	cause := context.Cause(h.ctx)
	if errors.Is(cause, errExited) {
		return nil
	}
	return cause
}

// IsCancelled returns true once the task has been asked to stop.
func (h *Handle) IsCancelled() bool { return h.Err() != nil }

// Name returns the name passed to [Group.Go].
func (h *Handle) Name() string { return h.name }

// Sleep pauses the calling goroutine for the given duration. It
// returns early with the cancellation cause if the Handle is
// cancelled. A non-positive duration only checks for cancellation.
func (h *Handle) Sleep(d time.Duration) error {
	if err := h.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-h.ctx.Done():
		return h.Err()
	}
}

// Wait blocks until the task has returned, yielding the task's error.
// If the argument's Done channel closes first, its Err value is
// returned instead, unless the task had already returned.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	default:
	}
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
