// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package logging constructs the zerolog loggers used for diagnostic
// output and defines the shared field names.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Field names shared by all diagnostic events.
const (
	FieldComponent = "component"
	FieldEvent     = "event"
	FieldOutcome   = "outcome"
	FieldReason    = "reason"
	FieldRun       = "run"
	FieldValue     = "value"
)

// Config contains logging configuration.
type Config struct {
	Level   string `mapstructure:"level" validate:"oneof=trace debug info warn error disabled"`
	Format  string `mapstructure:"format" validate:"oneof=console json"`
	Output  string `mapstructure:"output" validate:"oneof=stdout stderr"`
	NoColor bool   `mapstructure:"no_color"`
}

// ApplyDefaults fills in unset values.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
}

// New returns a logger built from the configuration. Invalid levels
// fall back to info.
func New(cfg Config) zerolog.Logger {
	cfg.ApplyDefaults()
	return NewWriter(cfg, outputWriter(cfg.Output))
}

// NewWriter is like [New], but writes to the given destination.
func NewWriter(cfg Config, out io.Writer) zerolog.Logger {
	cfg.ApplyDefaults()
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	if strings.ToLower(cfg.Format) == "console" {
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: "15:04:05.000",
		})
	} else {
		zl = zerolog.New(out)
	}
	return zl.Level(level).With().Timestamp().Logger()
}

func outputWriter(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stderr":
		return os.Stderr
	default:
		return os.Stdout
	}
}
