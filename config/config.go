/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package config

import (
	"fmt"
	"slices"

	"go.uber.org/multierr"

	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/errors"
	"dirpx.dev/capx/log"
	uref "dirpx.dev/capx/utils/reflect"
)

const (
	// DefaultStrictDuplicates keeps the last-wins policy for repeated signatures.
	DefaultStrictDuplicates = false
	// DefaultMaxUnwrap represents the default for MaxUnwrap.
	DefaultMaxUnwrap = uref.DefaultMaxUnwrap
	// DefaultLogLevel is the level of runtime-built loggers.
	DefaultLogLevel = "info"
)

// NewConfig constructs an apis.Config from the given options.
func NewConfig(opts ...Option) apis.Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	// Ensure MaxUnwrap is valid.
	if cfg.MaxUnwrap <= 0 {
		cfg.MaxUnwrap = DefaultMaxUnwrap
	}
	return cfg
}

// DefaultConfig is the default configuration used when none is provided.
func DefaultConfig() apis.Config {
	return apis.Config{
		StrictDuplicates: DefaultStrictDuplicates,
		MaxUnwrap:        DefaultMaxUnwrap,
		LogLevel:         DefaultLogLevel,
	}
}

// Validate reports every invalid field of cfg.
func Validate(cfg apis.Config) error {
	var err error
	for _, axis := range cfg.Axes {
		if _, aerr := address.New(address.Seg(axis, "v")); aerr != nil {
			err = multierr.Append(err, fmt.Errorf("axis %q: %w", axis, aerr))
		}
	}
	if cfg.MaxUnwrap < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: max_unwrap %d", errors.ErrInvalidArgument, cfg.MaxUnwrap))
	}
	if _, lerr := log.ParseLevel(cfg.LogLevel); lerr != nil {
		err = multierr.Append(err, lerr)
	}
	if err != nil {
		return errors.NewConfigurationError("config", "", err)
	}
	return nil
}

// Option is a functional option that mutates an apis.Config during construction.
type Option func(*apis.Config)

// WithStrictDuplicates sets the StrictDuplicates option.
func WithStrictDuplicates(strict bool) Option {
	return func(c *apis.Config) {
		c.StrictDuplicates = strict
	}
}

// WithAxes extends the address vocabulary. Repeated axes are kept once.
func WithAxes(axes ...address.Axis) Option {
	return func(c *apis.Config) {
		for _, a := range axes {
			if !slices.Contains(c.Axes, a) {
				c.Axes = append(c.Axes, a)
			}
		}
	}
}

// WithMaxUnwrap sets the MaxUnwrap option.
// A non-positive value resets to the default.
func WithMaxUnwrap(max int) Option {
	return func(c *apis.Config) {
		if max <= 0 {
			c.MaxUnwrap = DefaultMaxUnwrap
			return
		}
		c.MaxUnwrap = max
	}
}

// WithDisableReflect sets the DisableReflect option.
func WithDisableReflect(disable bool) Option {
	return func(c *apis.Config) {
		c.DisableReflect = disable
	}
}

// WithLogLevel sets the LogLevel option.
func WithLogLevel(level string) Option {
	return func(c *apis.Config) {
		c.LogLevel = level
	}
}
