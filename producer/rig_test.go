// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package producer

import (
	"context"
	"testing"
	"time"

	"vawter.tech/streamcancel/internal/logging"
	"vawter.tech/streamcancel/linger"
	"vawter.tech/streamcancel/task"
)

// newProducerForTest constructs a Producer whose log output is
// captured and which is checked for lingering work loops when the test
// ends.
func newProducerForTest(t *testing.T, cfg Config, opts ...Option) (*Producer, *logging.Capture) {
	t.Helper()

	// Impose a per-test timeout. The test's own context is canceled
	// before cleanups run, so it can't be used to close the Producer.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	capture, log := logging.NewCapture()
	rec := linger.NewRecorder(10 /* depth */)
	opts = append([]Option{
		WithLogger(log),
		WithGroupOptions(task.WithMiddleware(rec.Middleware)),
	}, opts...)

	p, err := New(ctx, cfg, opts...)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		if err := p.Close(ctx); err != nil {
			t.Errorf("producer returned an error: %v", err)
		}
		linger.CheckClean(t, rec)
	})
	return p, capture
}

// stepPacer lets a test release the work loop one value at a time.
type stepPacer struct {
	step chan struct{}
}

func newStepPacer() *stepPacer {
	return &stepPacer{step: make(chan struct{})}
}

func (p *stepPacer) Wait(ctx context.Context) error {
	select {
	case <-p.step:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
