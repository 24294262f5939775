// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package task_test

import (
	"context"
	"fmt"
	"time"

	"vawter.tech/streamcancel/task"
)

func ExampleGroup() {
	ctx := context.Background()
	g := task.NewGroup(ctx)

	h, err := g.Go("sleeper", func(h *task.Handle) error {
		// Cancellation interrupts the delay.
		if err := h.Sleep(time.Hour); err != nil {
			fmt.Println("interrupted:", err)
		}
		return nil
	})
	if err != nil {
		panic(err)
	}

	// The handle can be captured by a callback that runs elsewhere.
	onDone := func() { h.Cancel() }
	onDone()

	_ = h.Wait(ctx)
	g.Stop()
	fmt.Println(g.Wait(ctx))
	// Output:
	// interrupted: cancelled
	// <nil>
}
