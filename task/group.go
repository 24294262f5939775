// Copyright 2023 The Cockroach Authors
// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"runtime/trace"
	"sync"

	"vawter.tech/streamcancel/internal/safe"
)

// A RecoveredError will be reported by a task that panics.
type RecoveredError = safe.RecoveredError

// Middleware decorates a task body. Middleware is applied in
// declaration order during the call to [Group.Go], so the first
// Middleware is outermost.
type Middleware func(name string, fn Func) Func

// An Option configures a [Group].
type Option func(*config)

type config struct {
	mw   []Middleware
	name string
}

// WithMiddleware appends task Middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(cfg *config) { cfg.mw = append(cfg.mw, mw...) }
}

// WithName sets the name used for runtime tracing.
func WithName(name string) Option {
	return func(cfg *config) { cfg.name = name }
}

// A Group tracks the lifecycle of launched tasks.
//
// Once [Group.Stop] has been called, the Group rejects new tasks and
// cancels the handles of all running tasks. The Group is done once it
// has been stopped and all tasks have returned. Canceling the context
// passed to [NewGroup] also stops the Group.
//
// All methods on a Group are safe for concurrent use.
type Group struct {
	cfg      config
	ctx      context.Context // Parent of all task handles.
	done     chan struct{}
	stopping chan struct{}

	mu struct {
		sync.Mutex
		// Both cancel and deferred are consumed by finishLocked.
		cancel   func()
		count    int
		deferred []func() error
		errs     []error
		finished bool
		live     map[*Handle]struct{}
		stopping bool
	}
}

// NewGroup constructs a Group whose tasks will be canceled when the
// context is canceled.
func NewGroup(ctx context.Context, opts ...Option) *Group {
	cfg := config{name: "group"}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, traceTask := trace.NewTask(ctx, cfg.name)
	ctx, cancel := context.WithCancelCause(ctx)

	g := &Group{
		cfg:      cfg,
		ctx:      ctx,
		done:     make(chan struct{}),
		stopping: make(chan struct{}),
	}
	g.mu.cancel = func() {
		cancel(ErrStopped)
		traceTask.End()
		close(g.done)
	}
	g.mu.live = make(map[*Handle]struct{})

	// Propagate a parent cancellation into a Stop call. This goroutine
	// exits once the Group finishes, since that cancels ctx as well.
	go func() {
		<-ctx.Done()
		g.Stop()
	}()
	return g
}

// Defer registers a callback to be executed once the Group has been
// stopped and all tasks have returned. Callbacks are executed in LIFO
// order and any errors are reported by [Group.Wait].
//
// If the Group is already done, the callback is executed immediately
// and this method returns false.
func (g *Group) Defer(fn func() error) (deferred bool) {
	if g.addDeferred(fn) {
		return true
	}
	// We don't execute user code while holding a mutex.
	g.addErrors(safe.CallE(fn))
	return false
}

// Done returns a channel that is closed once the Group has been
// stopped, all tasks have returned, and deferred callbacks have run.
func (g *Group) Done() <-chan struct{} { return g.done }

// Go launches the task in a new goroutine. It returns [ErrStopped] if
// the Group is stopping.
//
// A task that returns an error, other than one caused by its own
// cancellation, has the error recorded for [Group.Wait]. Panics are
// recovered and reported as a [RecoveredError].
func (g *Group) Go(name string, fn Func) (*Handle, error) {
	traceCtx, traceTask := trace.NewTask(g.ctx, name)
	h := newHandle(traceCtx, name)
	if !g.track(h) {
		h.cancel(ErrStopped)
		traceTask.End()
		return nil, ErrStopped
	}

	// Build the invocation chain from the bottom up.
	run := fn
	for i := len(g.cfg.mw) - 1; i >= 0; i-- {
		run = g.cfg.mw[i](name, run)
	}

	go func() {
		defer g.release(h)
		defer traceTask.End()
		defer close(h.done)

		err := safe.CallE(func() error { return run(h) })
		if err != nil && !errors.Is(err, h.Err()) {
			err = fmt.Errorf("%s: %w", name, err)
			g.addErrors(err)
		}
		h.err = err
	}()
	return h, nil
}

// Len returns the number of running tasks.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mu.count
}

// Stop moves the Group into the stopping state. New tasks will be
// rejected and the handles of all running tasks are cancelled. This
// method does not wait for tasks to exit and may be called more than
// once.
func (g *Group) Stop() {
	var deferred []func() error
	defer func() { g.callDeferred(deferred) }()

	var live []*Handle
	g.mu.Lock()
	if !g.mu.stopping {
		g.mu.stopping = true
		close(g.stopping)
		for h := range g.mu.live {
			live = append(live, h)
		}
		if g.mu.count == 0 {
			deferred = g.finishLocked()
		}
	}
	g.mu.Unlock()

	for _, h := range live {
		h.cancel(ErrStopped)
	}
}

// Stopping returns a channel that is closed once [Group.Stop] has been
// called or the parent context has been canceled.
func (g *Group) Stopping() <-chan struct{} { return g.stopping }

// Wait blocks until the Group is done and returns any errors reported
// by tasks or deferred callbacks. If the argument's Done channel
// closes first, its Err value is returned instead. A Group that is
// already done always reports its own result.
func (g *Group) Wait(ctx context.Context) error {
	select {
	case <-g.done:
	default:
		select {
		case <-g.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return errors.Join(g.mu.errs...)
}

// addDeferred is a minimal critical section.
func (g *Group) addDeferred(fn func() error) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mu.finished {
		return false
	}
	g.mu.deferred = append(g.mu.deferred, fn)
	return true
}

func (g *Group) addErrors(errs ...error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, err := range errs {
		if err != nil {
			g.mu.errs = append(g.mu.errs, err)
		}
	}
}

// callDeferred executes the functions in reverse order. It must not be
// called with the mutex held, since it's calling user-provided code.
func (g *Group) callDeferred(toCall []func() error) {
	for i := len(toCall) - 1; i >= 0; i-- {
		g.addErrors(safe.CallE(toCall[i]))
	}
}

// finishLocked is a one-shot that returns the deferred callbacks to
// execute outside the mutex. Closing the done channel is treated as
// though it were the first callback registered, so it runs last.
func (g *Group) finishLocked() []func() error {
	cancel := g.mu.cancel
	if cancel == nil {
		return nil
	}
	g.mu.cancel = nil
	g.mu.finished = true

	deferred := make([]func() error, len(g.mu.deferred)+1)
	deferred[0] = func() error {
		cancel()
		return nil
	}
	copy(deferred[1:], g.mu.deferred)
	g.mu.deferred = nil
	return deferred
}

// release is called once a task has returned.
func (g *Group) release(h *Handle) {
	// The task is done, so release the context without reporting a
	// cancellation.
	h.cancel(errExited)

	var deferred []func() error
	defer func() { g.callDeferred(deferred) }()

	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.mu.live, h)
	g.mu.count--
	if g.mu.count < 0 {
		// Implementation error, not user problem.
		panic("over-released")
	}
	if g.mu.stopping && g.mu.count == 0 {
		deferred = g.finishLocked()
	}
}

// track registers a new task unless the Group is stopping.
func (g *Group) track(h *Handle) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mu.stopping {
		return false
	}
	g.mu.count++
	g.mu.live[h] = struct{}{}
	return true
}
