// Copyright 2025 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package linger

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckEmpty(t *testing.T) {
	rec := NewRecorder(1)
	fake := &fakeTB{t: t}
	CheckClean(fake, rec)
	require.False(t, fake.failed)
}

func TestLingering(t *testing.T) {
	r := require.New(t)

	here := make([]uintptr, 1)
	here = here[:runtime.Callers(1, here)]

	rec := NewRecorder(1)
	rec.data.Store(uintptr(1), &sample{name: "stuck", pcs: here})
	r.Equal([]string{"stuck"}, rec.Names())

	fake := &fakeTB{t: t}
	CheckClean(fake, rec)

	r.True(fake.failed)
	r.Len(fake.msgs, 1)
	r.Contains(fake.msgs[0], `task "stuck" still running`)
	r.Contains(fake.msgs[0], "linger.TestLingering")
}

type fakeTB struct {
	failed bool
	msgs   []string
	t      *testing.T
}

func (f *fakeTB) Helper() {}
func (f *fakeTB) Errorf(s string, a ...any) {
	f.failed = true
	f.msgs = append(f.msgs, fmt.Sprintf(s, a...))
	f.t.Logf(s, a...)
}
