// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package consumer drains the stream of a producer run until it is
// exhausted or until it is asked to stop.
//
// A call to [Consumer.Stop] only sets a flag. The flag is checked once
// per received value, so the loop ends upon the next delivery. Leaving
// the loop abandons the run's stream, which in turn cancels the
// producer's work loop.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"vawter.tech/streamcancel/internal/logging"
	"vawter.tech/streamcancel/producer"
)

// Diagnostic event names emitted by the consumer.
const (
	EventConsumed     = "consumed"
	EventDone         = "done"
	EventStopObserved = "stop_observed"
)

// ErrRunning is returned by [Consumer.Start] if a previous call has
// not yet returned.
var ErrRunning = errors.New("consumer already running")

// A Source begins producer runs. It is implemented by
// [*producer.Producer].
type Source interface {
	Start(ctx context.Context) (*producer.Run, error)
}

var _ Source = (*producer.Producer)(nil)

// An Option configures a [Consumer].
type Option func(*Consumer)

// WithLogger sets the destination for diagnostic events.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Consumer) { c.log = log }
}

// WithProcessor sets a function to be called with each consumed value.
// It is called on the goroutine that called [Consumer.Start].
func WithProcessor(fn func(int)) Option {
	return func(c *Consumer) { c.process = fn }
}

// Result summarizes a call to [Consumer.Start].
type Result struct {
	Outcome   producer.State // Exhausted or Cancelled.
	Processed int
	Run       uuid.UUID
	Stopped   bool // The stop flag ended the loop.
}

// A Consumer drives iteration over the streams of a single [Source].
type Consumer struct {
	log     zerolog.Logger
	process func(int)
	source  Source

	running       atomic.Bool
	stopRequested atomic.Bool
}

// New constructs a Consumer.
func New(source Source, opts ...Option) *Consumer {
	c := &Consumer{
		log:     zerolog.Nop(),
		process: func(int) {},
		source:  source,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str(logging.FieldComponent, "consumer").Logger()
	return c
}

// Running returns true while a call to [Consumer.Start] is in
// progress.
func (c *Consumer) Running() bool { return c.running.Load() }

// Start begins a fresh run and consumes it. It returns once the
// stream has ended, the stop flag has been observed, or the context
// has ended, and after the run's work loop has returned.
//
// The stop flag is cleared when Start begins, so a call to
// [Consumer.Stop] that precedes Start has no effect.
func (c *Consumer) Start(ctx context.Context) (Result, error) {
	if !c.running.CompareAndSwap(false, true) {
		return Result{}, ErrRunning
	}
	defer c.running.Store(false)
	c.stopRequested.Store(false)

	run, err := c.source.Start(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("could not start run: %w", err)
	}
	res := Result{Run: run.ID()}
	log := c.log.With().Str(logging.FieldRun, run.ID().String()).Logger()

	for v := range run.Stream().All(ctx) {
		if c.stopRequested.Load() {
			log.Info().
				Str(logging.FieldEvent, EventStopObserved).
				Int(logging.FieldValue, v).
				Msg("stop requested")
			res.Stopped = true
			break
		}
		log.Info().
			Str(logging.FieldEvent, EventConsumed).
			Int(logging.FieldValue, v).
			Msg("consumed")
		c.process(v)
		res.Processed++
	}

	// Leaving the loop has cancelled the work loop, unless it was
	// exhausted, so this wait is brief.
	res.Outcome, err = run.Wait(ctx)

	log.Info().
		Str(logging.FieldEvent, EventDone).
		Stringer(logging.FieldOutcome, res.Outcome).
		Int("processed", res.Processed).
		Bool("stopped", res.Stopped).
		Msg("producer: done")

	if ctx.Err() != nil {
		return res, context.Cause(ctx)
	}
	return res, err
}

// Stop requests that the current call to [Consumer.Start] end upon
// receiving its next value. It is safe to call from any goroutine at
// any time.
func (c *Consumer) Stop() { c.stopRequested.Store(true) }
