// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package task

// CallOnReceive launches a task in the Group that invokes the callback
// once a value is received from the channel or the channel is closed.
// It can be used, for example, with [os/signal.Notify] or a
// [time.Timer]. The task exits without calling the callback if the
// Group is stopped first.
func CallOnReceive[T any](g *Group, ch <-chan T, fn func()) error {
	_, err := g.Go("call-on-receive", func(h *Handle) error {
		select {
		case <-ch:
			fn()
		case <-h.Cancelled():
		}
		return nil
	})
	return err
}
