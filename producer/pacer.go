// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package producer

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// A Pacer implements the delay between produced values. Wait must
// return promptly with an error once the context is canceled, and
// only then.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Interval returns a Pacer whose Wait blocks for one interval per
// call. A non-positive interval never blocks, although Wait still
// reports cancellation.
func Interval(d time.Duration) Pacer {
	if d <= 0 {
		return &limiterPacer{rate.NewLimiter(rate.Inf, 1)}
	}
	l := rate.NewLimiter(rate.Every(d), 1)
	// Spend the initial token so that the first Wait lasts a full
	// interval.
	l.Allow()
	return &limiterPacer{l}
}

// limiterPacer differs from [rate.Limiter.Wait] in that a context
// deadline which falls before the next token is not an error. The
// delay ends early only if the context is canceled.
type limiterPacer struct {
	limiter *rate.Limiter
}

func (p *limiterPacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := p.limiter.Reserve()
	if !r.OK() {
		return errors.New("pacer burst exceeded")
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		// Return the token for use by a later call.
		r.Cancel()
		return ctx.Err()
	}
}
