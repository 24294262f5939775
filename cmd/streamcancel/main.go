// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Command streamcancel starts a producer run and consumes it until the
// run is exhausted, the process receives SIGINT or SIGTERM, or a
// configured duration elapses.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"vawter.tech/streamcancel/consumer"
	"vawter.tech/streamcancel/internal/config"
	"vawter.tech/streamcancel/internal/logging"
	"vawter.tech/streamcancel/producer"
	"vawter.tech/streamcancel/task"
)

func main() {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	configFile := fs.String("config", "", "a YAML configuration file")
	envFile := fs.String("env-file", "", "a .env file to load into the environment")
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(
		config.WithConfigFile(*configFile),
		config.WithEnvFile(*envFile),
		config.WithFlags(fs),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logging.New(cfg.Log)
	if err := run(context.Background(), cfg, log); err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	p, err := producer.New(ctx, cfg.Producer,
		producer.WithLogger(log),
		producer.WithMeter(provider.Meter("streamcancel")),
	)
	if err != nil {
		return err
	}
	c := consumer.New(p, consumer.WithLogger(log))

	g := task.NewGroup(ctx, task.WithName("streamcancel"))

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	if err := task.CallOnReceive(g, signals, func() {
		log.Info().Msg("signal received, stopping consumer")
		c.Stop()
	}); err != nil {
		return err
	}

	if d := cfg.Consumer.StopAfter; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		if err := task.CallOnReceive(g, timer.C, func() {
			log.Info().Dur("after", d).Msg("stopping consumer")
			c.Stop()
		}); err != nil {
			return err
		}
	}

	var res consumer.Result
	h, err := g.Go("consumer", func(h *task.Handle) error {
		var err error
		res, err = c.Start(h.Context())
		return err
	})
	if err != nil {
		return err
	}
	_ = h.Wait(ctx)

	g.Stop()
	err = errors.Join(g.Wait(ctx), p.Close(ctx))

	log.Info().
		Str(logging.FieldRun, res.Run.String()).
		Stringer(logging.FieldOutcome, res.Outcome).
		Int("processed", res.Processed).
		Bool("stopped", res.Stopped).
		Msg("finished")
	logMetrics(ctx, reader, log)
	return err
}

// logMetrics reports the totals of the producer's counters.
func logMetrics(ctx context.Context, reader sdkmetric.Reader, log zerolog.Logger) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		log.Warn().Err(err).Msg("could not collect metrics")
		return
	}
	evt := log.Info()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			evt = evt.Int64(m.Name, total)
		}
	}
	evt.Msg("metrics")
}
