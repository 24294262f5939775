// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package producer

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config describes the sequence produced by each run.
type Config struct {
	From     int           `mapstructure:"from"`
	To       int           `mapstructure:"to" validate:"gtefield=From"`
	Interval time.Duration `mapstructure:"interval" validate:"gte=0"`
}

// DefaultConfig counts from one to one hundred thousand, one value per
// second.
func DefaultConfig() Config {
	return Config{
		From:     1,
		To:       100_000,
		Interval: time.Second,
	}
}

// Validate reports an error if the configuration cannot be used.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid producer config: %w", err)
	}
	return nil
}
