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

// Package collector provides the build-time registry an adapter module
// fills with signature implementations and artifacts.
//
// A Collector is open while its module initializes and is sealed before
// (or when) it is applied to an isolate. Sealing validates the entries and
// freezes them; a sealed collector is read without locking.
package collector

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/errors"
	"dirpx.dev/capx/log"
	"dirpx.dev/capx/signature"
)

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger used for registration diagnostics.
func WithLogger(l log.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStrictDuplicates makes a repeated signature a configuration error
// instead of an override.
func WithStrictDuplicates(strict bool) Option {
	return func(c *Collector) { c.strict = strict }
}

// WithConfig applies the collector-relevant fields of cfg.
func WithConfig(cfg apis.Config) Option {
	return func(c *Collector) { c.strict = cfg.StrictDuplicates }
}

// Collector maps signatures to implementations for one adapter module.
type Collector struct {
	id     uuid.UUID
	name   string
	logger log.Logger
	strict bool

	mu        sync.Mutex
	entries   []apis.Entry
	index     map[signature.Signature]int
	artifacts map[signature.ArtifactKey]any
	sealed    atomic.Bool
	frozen    *frozen
}

// frozen is the read-only view published by Seal.
type frozen struct {
	entries   []apis.Entry
	artifacts map[signature.ArtifactKey]any
}

// New returns an open Collector named name.
func New(name string, opts ...Option) *Collector {
	c := &Collector{
		id:        uuid.New(),
		name:      name,
		logger:    log.DiscardLogger,
		index:     make(map[signature.Signature]int),
		artifacts: make(map[signature.ArtifactKey]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the collector identity.
func (c *Collector) ID() uuid.UUID { return c.id }

// Name returns the collector name.
func (c *Collector) Name() string { return c.name }

// String implements fmt.Stringer.
func (c *Collector) String() string {
	return fmt.Sprintf("%s(%s)", c.name, c.id.String()[:8])
}

// Register adds an implementation of capability for pattern.
func (c *Collector) Register(capability signature.Capability, pattern address.Pattern, impl apis.Impl) error {
	return c.RegisterSubject(capability, "", pattern, impl)
}

// RegisterSubject adds an implementation of capability narrowed to subject.
//
// Registering the same signature twice overrides the earlier entry and logs
// a warning, unless the collector is strict.
func (c *Collector) RegisterSubject(capability signature.Capability, subject string, pattern address.Pattern, impl apis.Impl) error {
	if capability == "" {
		return errors.NewConfigurationError("register", c.name, errors.ErrEmptyCapability)
	}
	if impl == nil {
		return errors.NewConfigurationError("register", c.name,
			fmt.Errorf("%w: %s", errors.ErrNilImplementation, capability))
	}

	sig := signature.Of(capability, pattern).WithSubject(subject)
	entry := apis.Entry{
		Signature: sig,
		Pattern:   pattern,
		Impl:      impl,
		Owner:     c.name,
		OwnerID:   c.id,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed.Load() {
		return errors.NewConfigurationError("register", c.name, errors.ErrSealed)
	}
	if i, ok := c.index[sig]; ok {
		if c.strict {
			return errors.NewConfigurationError("register", c.name,
				fmt.Errorf("%w: %s", errors.ErrDuplicateSignature, sig))
		}
		c.logger.With("collector", c.name, "signature", sig.String()).
			Warn("signature registered twice, last registration wins")
		c.entries[i] = entry
		return nil
	}
	c.index[sig] = len(c.entries)
	c.entries = append(c.entries, entry)
	return nil
}

// RegisterArtifact stores an extension point value under key, following
// the same duplicate policy as signatures.
func (c *Collector) RegisterArtifact(key signature.ArtifactKey, value any) error {
	if key.Kind == "" || key.Name == "" || value == nil {
		return errors.NewConfigurationError("register", c.name,
			fmt.Errorf("%w: artifact %s", errors.ErrInvalidArgument, key))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed.Load() {
		return errors.NewConfigurationError("register", c.name, errors.ErrSealed)
	}
	if _, ok := c.artifacts[key]; ok {
		if c.strict {
			return errors.NewConfigurationError("register", c.name,
				fmt.Errorf("%w: artifact %s", errors.ErrDuplicateSignature, key))
		}
		c.logger.With("collector", c.name, "artifact", key.String()).
			Warn("artifact registered twice, last registration wins")
	}
	c.artifacts[key] = value
	return nil
}

// Seal validates the collector and freezes it. Sealing twice is a no-op.
//
// Two entries of the same route whose patterns have the same shape and
// specificity and are not provably disjoint would tie at resolution time;
// they are reported together as one configuration error and the
// collector stays open.
func (c *Collector) Seal() error {
	if c.sealed.Load() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed.Load() {
		return nil
	}
	if err := ambiguities(c.entries); err != nil {
		return errors.NewConfigurationError("seal", c.name, err)
	}

	artifacts := make(map[signature.ArtifactKey]any, len(c.artifacts))
	for k, v := range c.artifacts {
		artifacts[k] = v
	}
	c.frozen = &frozen{entries: slices.Clone(c.entries), artifacts: artifacts}
	c.sealed.Store(true)
	c.logger.With("collector", c.name, "entries", len(c.entries), "artifacts", len(artifacts)).
		Debug("collector sealed")
	return nil
}

// Sealed reports whether the collector accepts no more registrations.
func (c *Collector) Sealed() bool { return c.sealed.Load() }

// Entries returns the registered entries in registration order.
func (c *Collector) Entries() []apis.Entry {
	if f := c.view(); f != nil {
		return slices.Clone(f.entries)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.entries)
}

// Artifacts returns a copy of the registered artifacts.
func (c *Collector) Artifacts() map[signature.ArtifactKey]any {
	src := c.artifacts
	if f := c.view(); f != nil {
		src = f.artifacts
	} else {
		c.mu.Lock()
		defer c.mu.Unlock()
	}
	out := make(map[signature.ArtifactKey]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Artifact returns the artifact registered under key.
func (c *Collector) Artifact(key signature.ArtifactKey) (any, bool) {
	if f := c.view(); f != nil {
		v, ok := f.artifacts[key]
		return v, ok
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.artifacts[key]
	return v, ok
}

// Len returns the number of registered signatures.
func (c *Collector) Len() int {
	if f := c.view(); f != nil {
		return len(f.entries)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// view returns the frozen view once sealed.
func (c *Collector) view() *frozen {
	if !c.sealed.Load() {
		return nil
	}
	return c.frozen
}

// ambiguities reports every pair of entries that could tie.
func ambiguities(entries []apis.Entry) error {
	var err error
	for i := range entries {
		a := entries[i]
		for j := i + 1; j < len(entries); j++ {
			b := entries[j]
			if a.Signature.Route() != b.Signature.Route() {
				continue
			}
			if a.Pattern.Specificity() != b.Pattern.Specificity() ||
				!a.Pattern.Overlaps(b.Pattern) {
				continue
			}
			err = multierr.Append(err, fmt.Errorf("%w: %s and %s",
				errors.ErrAmbiguousSignature, a.Signature, b.Signature))
		}
	}
	return err
}
