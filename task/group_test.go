// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupStopCancelsTasks(t *testing.T) {
	r := require.New(t)

	g := NewGroup(t.Context())
	started := make(chan struct{})
	h, err := g.Go("waiter", func(h *Handle) error {
		close(started)
		<-h.Cancelled()
		return h.Err()
	})
	r.NoError(err)
	<-started
	r.Equal(1, g.Len())

	g.Stop()
	select {
	case <-g.Stopping():
	default:
		r.Fail("stopping channel not closed")
	}

	r.NoError(g.Wait(t.Context()))
	r.ErrorIs(h.Err(), ErrStopped)
	r.True(h.IsCancelled())
	r.Zero(g.Len())

	_, err = g.Go("late", func(*Handle) error { return nil })
	r.ErrorIs(err, ErrStopped)
}

func TestGroupParentCancel(t *testing.T) {
	r := require.New(t)

	parent, cancel := context.WithCancel(t.Context())
	g := NewGroup(parent)
	h, err := g.Go("waiter", func(h *Handle) error {
		<-h.Cancelled()
		return nil
	})
	r.NoError(err)

	cancel()
	select {
	case <-g.Done():
	case <-time.After(time.Second):
		r.Fail("group did not finish")
	}
	r.True(h.IsCancelled())
	r.NoError(g.Wait(t.Context()))
}

func TestGroupErrors(t *testing.T) {
	r := require.New(t)

	boom := errors.New("boom")
	g := NewGroup(t.Context())
	_, err := g.Go("fails", func(*Handle) error { return boom })
	r.NoError(err)
	_, err = g.Go("panics", func(*Handle) error { panic("yikes") })
	r.NoError(err)
	_, err = g.Go("cancelled", func(h *Handle) error {
		<-h.Cancelled()
		return h.Err()
	})
	r.NoError(err)

	g.Stop()
	err = g.Wait(t.Context())
	r.ErrorIs(err, boom)
	r.ErrorContains(err, "fails: boom")
	var rec *RecoveredError
	r.ErrorAs(err, &rec)
	r.ErrorContains(err, "yikes")
	r.NotErrorIs(err, ErrStopped)
}

func TestGroupDefer(t *testing.T) {
	r := require.New(t)

	g := NewGroup(t.Context())
	var order []int
	r.True(g.Defer(func() error { order = append(order, 1); return nil }))
	r.True(g.Defer(func() error { order = append(order, 2); return errors.New("deferred") }))

	release := make(chan struct{})
	_, err := g.Go("blocker", func(*Handle) error {
		<-release
		return nil
	})
	r.NoError(err)

	g.Stop()
	r.Empty(order)
	close(release)

	r.ErrorContains(g.Wait(t.Context()), "deferred")
	r.Equal([]int{2, 1}, order)

	// Already done, so execute immediately.
	r.False(g.Defer(func() error { order = append(order, 3); return nil }))
	r.Equal([]int{2, 1, 3}, order)
}

func TestGroupStopIdempotent(t *testing.T) {
	r := require.New(t)

	g := NewGroup(t.Context())
	g.Stop()
	g.Stop()
	r.NoError(g.Wait(t.Context()))
}

func TestGroupWaitInterrupted(t *testing.T) {
	r := require.New(t)

	g := NewGroup(t.Context())
	defer g.Stop()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	r.ErrorIs(g.Wait(ctx), context.Canceled)
}

func TestMiddlewareOrder(t *testing.T) {
	a := assert.New(t)

	var order []string
	mw := func(label string) Middleware {
		return func(name string, fn Func) Func {
			return func(h *Handle) error {
				order = append(order, label+":"+name)
				return fn(h)
			}
		}
	}

	g := NewGroup(t.Context(), WithName("mw"), WithMiddleware(mw("outer"), mw("inner")))
	h, err := g.Go("work", func(*Handle) error {
		order = append(order, "body")
		return nil
	})
	a.NoError(err)
	a.NoError(h.Wait(t.Context()))
	a.Equal([]string{"outer:work", "inner:work", "body"}, order)

	g.Stop()
	a.NoError(g.Wait(t.Context()))
}

func TestManyTasks(t *testing.T) {
	r := require.New(t)

	const n = 64
	var ran atomic.Int32
	g := NewGroup(t.Context())
	for range n {
		_, err := g.Go("many", func(h *Handle) error {
			ran.Add(1)
			return h.Sleep(time.Millisecond)
		})
		r.NoError(err)
	}
	g.Stop()
	r.NoError(g.Wait(t.Context()))
	r.Equal(int32(n), ran.Load())
}
