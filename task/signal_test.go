// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCallOnReceive(t *testing.T) {
	r := require.New(t)

	g := NewGroup(t.Context())
	ch := make(chan int)
	called := make(chan struct{})
	r.NoError(CallOnReceive(g, ch, func() { close(called) }))

	ch <- 1
	<-called
	g.Stop()
	r.NoError(g.Wait(t.Context()))
}

func TestCallOnReceiveClosed(t *testing.T) {
	r := require.New(t)

	g := NewGroup(t.Context())
	ch := make(chan struct{})
	var count atomic.Int32
	r.NoError(CallOnReceive(g, ch, func() { count.Add(1) }))

	close(ch)
	r.Eventually(func() bool { return g.Len() == 0 }, time.Second, time.Millisecond)
	r.Equal(int32(1), count.Load())
	g.Stop()
	r.NoError(g.Wait(t.Context()))
}

func TestCallOnReceiveStopped(t *testing.T) {
	r := require.New(t)

	g := NewGroup(t.Context())
	var count atomic.Int32
	r.NoError(CallOnReceive(g, make(chan struct{}), func() { count.Add(1) }))

	g.Stop()
	r.NoError(g.Wait(t.Context()))
	r.Zero(count.Load())

	r.ErrorIs(CallOnReceive(g, make(chan struct{}), func() {}), ErrStopped)
}
