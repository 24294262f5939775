// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package stream_test

import (
	"context"
	"fmt"

	"vawter.tech/streamcancel/stream"
)

func Example() {
	sink, ch := stream.New[int](stream.KeepNewest(1))
	sink.OnTerminate(func(reason stream.Reason) {
		fmt.Println("terminated:", reason)
	})

	sink.Send(1)
	sink.Send(2) // Overwrites the pending value.
	sink.Finish()

	for v := range ch.All(context.Background()) {
		fmt.Println(v)
	}
	// Output:
	// 2
	// terminated: finished
}

func ExampleChannel_All_break() {
	sink, ch := stream.New[int](stream.Unbounded())
	sink.OnTerminate(func(reason stream.Reason) {
		fmt.Println("terminated:", reason)
	})
	for i := range 5 {
		sink.Send(i)
	}

	for v := range ch.All(context.Background()) {
		fmt.Println(v)
		if v == 1 {
			break
		}
	}
	fmt.Println(sink.Send(5))
	// Output:
	// 0
	// 1
	// terminated: cancelled
	// terminated
}
