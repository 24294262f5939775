// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package producer generates a counting sequence into a stream and
// stops as soon as the stream's consumer goes away.
//
// Each call to [Producer.Start] creates an independent [Run]. The
// termination callback registered on the run's stream captures the
// run's [task.Handle] when it is registered and does nothing but
// cancel it, so it never needs to touch the Producer.
package producer

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"vawter.tech/streamcancel/internal/logging"
	"vawter.tech/streamcancel/stream"
	"vawter.tech/streamcancel/task"
)

// An Option configures a [Producer].
type Option func(*options)

type options struct {
	groupOpts []task.Option
	log       zerolog.Logger
	meter     metric.Meter
	pacer     func() Pacer
	policy    stream.Policy
}

// WithGroupOptions passes options to the [task.Group] that runs the
// work loops.
func WithGroupOptions(opts ...task.Option) Option {
	return func(o *options) { o.groupOpts = append(o.groupOpts, opts...) }
}

// WithLogger sets the destination for diagnostic events. The default
// discards them.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMeter overrides the meter obtained from the global
// OpenTelemetry provider.
func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}

// WithPacer replaces the default [Interval] pacer. The function is
// called once per run.
func WithPacer(fn func() Pacer) Option {
	return func(o *options) { o.pacer = fn }
}

// WithPolicy overrides the buffering policy of each run's stream. The
// default keeps only the newest value.
func WithPolicy(p stream.Policy) Option {
	return func(o *options) { o.policy = p }
}

// A Producer starts runs. All methods are safe for concurrent use.
type Producer struct {
	cfg     Config
	group   *task.Group
	log     zerolog.Logger
	metrics *metrics
	pacer   func() Pacer
	policy  stream.Policy

	// Serializes Start.
	mu struct {
		sync.Mutex
		started int
	}
}

// New constructs a Producer. Its runs are canceled when the context
// is canceled or when [Producer.Close] is called.
func New(ctx context.Context, cfg Config, opts ...Option) (*Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{
		log:    zerolog.Nop(),
		policy: stream.KeepNewest(1),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.meter == nil {
		o.meter = defaultMeter()
	}
	if o.pacer == nil {
		o.pacer = func() Pacer { return Interval(cfg.Interval) }
	}

	m, err := newMetrics(o.meter)
	if err != nil {
		return nil, err
	}

	groupOpts := append([]task.Option{task.WithName("producer")}, o.groupOpts...)
	return &Producer{
		cfg:     cfg,
		group:   task.NewGroup(ctx, groupOpts...),
		log:     o.log.With().Str(logging.FieldComponent, "producer").Logger(),
		metrics: m,
		pacer:   o.pacer,
		policy:  o.policy,
	}, nil
}

// Close cancels all runs and waits for their work loops to return.
func (p *Producer) Close(ctx context.Context) error {
	p.group.Stop()
	return p.group.Wait(ctx)
}

// Len returns the number of work loops that are running.
func (p *Producer) Len() int { return p.group.Len() }

// Start begins a new run and returns once its work loop has been
// launched. It returns [task.ErrStopped] if the Producer has been
// closed.
//
// The run's work loop is canceled when the consumer disengages from
// [Run.Stream], whether by draining it, cancelling it, or discarding
// it.
func (p *Producer) Start(ctx context.Context) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := uuid.New()
	log := p.log.With().Str(logging.FieldRun, id.String()).Logger()
	sink, ch := stream.New[int](p.policy)
	st := &runState{}

	w := &worker{
		cfg:     p.cfg,
		log:     log,
		metrics: p.metrics,
		pacer:   p.pacer(),
		sink:    sink,
		state:   st,
	}
	h, err := p.group.Go("producer.run", w.run)
	if err != nil {
		sink.Finish()
		return nil, err
	}
	p.mu.started++

	// The callback may run on any goroutine, so it only uses values
	// captured here.
	sink.OnTerminate(func(reason stream.Reason) {
		log.Info().
			Str(logging.FieldEvent, EventTerminated).
			Stringer(logging.FieldReason, reason).
			Msg("stream terminated")
		h.Cancel()
	})

	log.Debug().Int("started", p.mu.started).Msg("run started")
	return &Run{
		handle: h,
		id:     id,
		state:  st,
		stream: ch,
	}, nil
}
