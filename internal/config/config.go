// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package config loads the command-line tool's configuration from a
// YAML file, a .env file, the environment, and flags. Later sources
// override earlier ones, with flags taking precedence.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"vawter.tech/streamcancel/internal/logging"
	"vawter.tech/streamcancel/producer"
)

// EnvPrefix is prepended to environment variable names. The key
// producer.interval is read from STREAMCANCEL_PRODUCER_INTERVAL.
const EnvPrefix = "STREAMCANCEL"

// Config is the top-level configuration.
type Config struct {
	Consumer Consumer        `mapstructure:"consumer"`
	Log      logging.Config  `mapstructure:"log"`
	Producer producer.Config `mapstructure:"producer"`
}

// Consumer configures the command-line consumer.
type Consumer struct {
	// If non-zero, the consumer is stopped after this long.
	StopAfter time.Duration `mapstructure:"stop_after" validate:"gte=0"`
}

// Default returns the configuration used when no other source
// provides a value.
func Default() Config {
	cfg := Config{Producer: producer.DefaultConfig()}
	cfg.Log.ApplyDefaults()
	return cfg
}

// Validate reports an error if the configuration cannot be used.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

var validate = newValidator()

// newValidator reports fields by their configuration key names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// flagKeys maps flag names onto configuration keys.
var flagKeys = map[string]string{
	"from":       "producer.from",
	"interval":   "producer.interval",
	"log-format": "log.format",
	"log-level":  "log.level",
	"stop-after": "consumer.stop_after",
	"to":         "producer.to",
}

// RegisterFlags adds configuration flags to the set. The flags only
// take effect when they are changed from their defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.Int("from", def.Producer.From, "the first value produced")
	fs.Int("to", def.Producer.To, "the last value produced")
	fs.Duration("interval", def.Producer.Interval, "the delay between produced values")
	fs.Duration("stop-after", def.Consumer.StopAfter, "stop the consumer after this long; zero waits for a signal")
	fs.String("log-level", def.Log.Level, "one of trace, debug, info, warn, error, disabled")
	fs.String("log-format", def.Log.Format, "one of console, json")
}

// An Option configures [Load].
type Option func(*loader)

type loader struct {
	configFile string
	envFile    string
	flags      *pflag.FlagSet
}

// WithConfigFile reads a YAML file. It is an error if the file cannot
// be read.
func WithConfigFile(path string) Option {
	return func(l *loader) { l.configFile = path }
}

// WithEnvFile loads a .env file into the process environment.
// Variables that are already set are not overwritten.
func WithEnvFile(path string) Option {
	return func(l *loader) { l.envFile = path }
}

// WithFlags binds flags previously added by [RegisterFlags].
func WithFlags(fs *pflag.FlagSet) Option {
	return func(l *loader) { l.flags = fs }
}

// Load assembles and validates the configuration.
func Load(opts ...Option) (*Config, error) {
	var l loader
	for _, opt := range opts {
		opt(&l)
	}

	v := viper.New()
	setDefaults(v, Default())

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file %s: %w", l.configFile, err)
		}
	}

	// The .env file must be loaded before viper consults the
	// environment.
	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil {
			return nil, fmt.Errorf("could not load env file %s: %w", l.envFile, err)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if l.flags != nil {
		for name, key := range flagKeys {
			if f := l.flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so that environment variables can
// be found by AutomaticEnv during Unmarshal.
func setDefaults(v *viper.Viper, def Config) {
	v.SetDefault("consumer.stop_after", def.Consumer.StopAfter)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.no_color", def.Log.NoColor)
	v.SetDefault("log.output", def.Log.Output)
	v.SetDefault("producer.from", def.Producer.From)
	v.SetDefault("producer.interval", def.Producer.Interval)
	v.SetDefault("producer.to", def.Producer.To)
}
