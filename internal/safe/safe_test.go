// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package safe

import (
	"errors"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// requireStack asserts that the RecoveredError has a non-empty Stack
// whose frames include the named function.
func requireStack(r *require.Assertions, err error, funcName string) {
	var rec *RecoveredError
	r.ErrorAs(err, &rec)
	r.NotEmpty(rec.Stack)

	frames := runtime.CallersFrames(rec.Stack)
	for {
		frame, more := frames.Next()
		if strings.Contains(frame.Function, funcName) {
			return
		}
		if !more {
			break
		}
	}
	r.Failf("missing frame", "expected stack to contain %q, got:\n%s",
		funcName, rec.String())
}

func TestCall(t *testing.T) {
	r := require.New(t)

	r.NoError(Call(func() {}))

	boom := errors.New("boom")
	err := Call(func() { panic(boom) })
	r.ErrorIs(err, boom)
	requireStack(r, err, "TestCall")

	err = Call(func() { panic("yikes") })
	r.ErrorContains(err, "panic: yikes")
	requireStack(r, err, "TestCall")
}

func TestCallE(t *testing.T) {
	r := require.New(t)

	r.NoError(CallE(func() error { return nil }))

	boom := errors.New("boom")
	r.Same(boom, CallE(func() error { return boom }))

	err := CallE(func() error { panic(boom) })
	r.ErrorIs(err, boom)
	requireStack(r, err, "TestCallE")
}

func TestRecoveredErrorFormatting(t *testing.T) {
	r := require.New(t)

	err := Call(func() { panic("formatted") })
	var rec *RecoveredError
	r.ErrorAs(err, &rec)
	r.True(strings.HasPrefix(rec.Error(), "recovered: panic: formatted\n"))
	r.Equal(rec.Error(), rec.String())
	r.ErrorContains(rec.Unwrap(), "formatted")
}
