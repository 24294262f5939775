// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package producer

import (
	"github.com/rs/zerolog"
	"vawter.tech/streamcancel/internal/logging"
	"vawter.tech/streamcancel/stream"
	"vawter.tech/streamcancel/task"
)

// Diagnostic event names emitted by the work loop.
const (
	EventCancelDetected   = "cancel_detected"
	EventDelayInterrupted = "delay_interrupted"
	EventTerminated       = "terminated"
	EventWorkEnded        = "work_ended"
	EventYield            = "yield"
)

// worker is the body of a single run. It only ever sees its own sink,
// pacer, and state.
type worker struct {
	cfg     Config
	log     zerolog.Logger
	metrics *metrics
	pacer   Pacer
	sink    *stream.Sink[int]
	state   *runState
}

func (w *worker) run(h *task.Handle) error {
	ctx := h.Context()
	w.state.set(Running)

	outcome := Exhausted
	for i := w.cfg.From; i <= w.cfg.To; i++ {
		if h.IsCancelled() {
			w.log.Info().
				Str(logging.FieldEvent, EventCancelDetected).
				Int(logging.FieldValue, i).
				Msg("work loop detected cancel")
			outcome = Cancelled
			break
		}

		w.log.Info().
			Str(logging.FieldEvent, EventYield).
			Int(logging.FieldValue, i).
			Msg("yield")
		w.metrics.values.Add(ctx, 1)
		if w.sink.Send(i) == stream.Dropped {
			w.metrics.dropped.Add(ctx, 1)
		}

		if err := w.pacer.Wait(ctx); err != nil {
			w.log.Info().
				Str(logging.FieldEvent, EventDelayInterrupted).
				Err(err).
				Msg("delay interrupted")
			outcome = Cancelled
			break
		}
	}

	if outcome == Cancelled {
		w.metrics.cancellations.Add(ctx, 1)
	}
	w.state.finish(outcome)
	w.log.Info().
		Str(logging.FieldEvent, EventWorkEnded).
		Stringer(logging.FieldOutcome, outcome).
		Msg("work loop ended")

	w.sink.Finish()
	w.state.set(Finished)
	return nil
}
