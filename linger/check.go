// Copyright 2025 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package linger

import (
	"fmt"
	"runtime"
	"strings"
)

// CheckClean records a test error for each task that the Recorder
// still considers to be running. The error includes the task name and
// the stack from which it was launched.
func CheckClean(t TestingT, r *Recorder) {
	samples := r.samples()
	if len(samples) == 0 {
		return
	}

	if x, ok := t.(interface{ Helper() }); ok {
		x.Helper()
	}

	for _, s := range samples {
		var sb strings.Builder
		fmt.Fprintf(&sb, "task %q still running, launched from:", s.name)
		frames := runtime.CallersFrames(s.pcs)
		for {
			frame, more := frames.Next()
			fmt.Fprintf(&sb, "\n    %s ( %s:%d )", frame.Function, frame.File, frame.Line)
			if !more {
				break
			}
		}
		t.Errorf("%s", sb.String())
	}
}

// TestingT is the subset of [testing.TB] needed by [CheckClean].
type TestingT interface {
	Errorf(string, ...any)
}
