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

// Package isolate composes applied collectors into an effective lookup table.
//
// Readers never lock: every mutation builds a fresh immutable table from the
// applied list and publishes it with a single atomic store, so a reader sees
// a collector's entries either entirely or not at all. Writers are
// serialized by a mutex; their order is the tie-break order of resolution.
package isolate

import (
	"context"
	"slices"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"go.uber.org/atomic"

	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/collector"
	"dirpx.dev/capx/errors"
	"dirpx.dev/capx/log"
	"dirpx.dev/capx/metric"
	"dirpx.dev/capx/signature"
)

// Option configures an Isolate.
type Option func(*Isolate)

// WithLogger sets the lifecycle logger.
func WithLogger(l log.Logger) Option {
	return func(i *Isolate) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithMetric sets the instruments recording apply and withdraw.
func WithMetric(m *metric.RoutingMetric) Option {
	return func(i *Isolate) { i.metric = m }
}

// Isolate is a mutable overlay of applied collectors, optionally layered
// over a parent isolate.
type Isolate struct {
	name   string
	parent *Isolate
	logger log.Logger
	metric *metric.RoutingMetric

	// mu serializes writers so that a table is never built from a
	// half-updated applied list.
	mu      sync.Mutex
	applied []*collector.Collector
	ids     mapset.Set[uuid.UUID]

	table      atomic.Pointer[table]
	generation atomic.Uint64
}

// New returns an empty root isolate.
func New(name string, opts ...Option) *Isolate {
	i := &Isolate{
		name:   name,
		logger: log.DiscardLogger,
		ids:    mapset.NewThreadUnsafeSet[uuid.UUID](),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.table.Store(emptyTable)
	return i
}

// Child returns a new isolate layered over i. Lookups through the child
// consult its own collectors before i's at equal specificity.
func (i *Isolate) Child(name string, opts ...Option) *Isolate {
	child := New(name, append([]Option{WithLogger(i.logger), WithMetric(i.metric)}, opts...)...)
	child.parent = i
	return child
}

// Name returns the isolate name.
func (i *Isolate) Name() string { return i.name }

// Parent returns the parent isolate, or nil for a root isolate.
func (i *Isolate) Parent() *Isolate { return i.parent }

// Generation counts the mutations published by i.
func (i *Isolate) Generation() uint64 { return i.generation.Load() }

// Apply installs every entry of c on top of the currently applied
// collectors. c is sealed first; a collector that fails to seal is a
// configuration error and leaves the table untouched. Applying an
// already-applied collector is a no-op and reports changed == false.
func (i *Isolate) Apply(ctx context.Context, c *collector.Collector) (changed bool, err error) {
	if c == nil {
		return false, errors.NewConfigurationError("apply", "", errors.ErrNilCollector)
	}
	if err := c.Seal(); err != nil {
		return false, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.ids.Contains(c.ID()) {
		i.logger.With("isolate", i.name, "collector", c.Name()).Debug("collector already applied")
		return false, nil
	}

	applied := append(slices.Clip(i.applied), c)
	i.publish(applied)
	i.ids.Add(c.ID())
	i.metric.RecordApply(ctx, i.name, c.Name())
	i.logger.With("isolate", i.name, "collector", c.Name(), "generation", i.Generation()).
		Debug("collector applied")
	return true, nil
}

// Withdraw removes exactly the entries c contributed. Entries of other
// collectors for the same signatures become visible again. Withdrawing a
// collector that is not applied is a no-op and reports changed == false.
func (i *Isolate) Withdraw(ctx context.Context, c *collector.Collector) (changed bool, err error) {
	if c == nil {
		return false, errors.NewConfigurationError("withdraw", "", errors.ErrNilCollector)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.ids.Contains(c.ID()) {
		i.logger.With("isolate", i.name, "collector", c.Name()).Debug("collector not applied")
		return false, nil
	}

	applied := slices.DeleteFunc(slices.Clone(i.applied), func(x *collector.Collector) bool {
		return x.ID() == c.ID()
	})
	i.publish(applied)
	i.ids.Remove(c.ID())
	i.metric.RecordWithdraw(ctx, i.name, c.Name())
	i.logger.With("isolate", i.name, "collector", c.Name(), "generation", i.Generation()).
		Debug("collector withdrawn")
	return true, nil
}

// Applied reports whether c is currently applied to i itself.
func (i *Isolate) Applied(c *collector.Collector) bool {
	if c == nil {
		return false
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ids.Contains(c.ID())
}

// Collectors returns the collectors applied to i, oldest first.
func (i *Isolate) Collectors() []*collector.Collector {
	i.mu.Lock()
	defer i.mu.Unlock()
	return slices.Clone(i.applied)
}

// View captures the current tables of i and its ancestors.
// A View is immutable and stays consistent while i keeps mutating. Every
// layer of a View was current at one common instant: loads are repeated
// until a second pass over the chain sees the same tables.
func (i *Isolate) View() *View {
	var layers []*table
	for {
		layers = layers[:0]
		for cur := i; cur != nil; cur = cur.parent {
			layers = append(layers, cur.table.Load())
		}
		if i.current(layers) {
			return &View{layers: slices.Clip(layers)}
		}
	}
}

// current reports whether layers are still the published tables of the chain.
func (i *Isolate) current(layers []*table) bool {
	k := 0
	for cur := i; cur != nil; cur = cur.parent {
		if cur.table.Load() != layers[k] {
			return false
		}
		k++
	}
	return true
}

// publish rebuilds the table from applied and stores it. Callers hold mu.
func (i *Isolate) publish(applied []*collector.Collector) {
	i.applied = applied
	t := build(applied)
	t.generation = i.generation.Inc()
	i.table.Store(t)
}

var _ apis.Table = (*View)(nil)

// View is a consistent read-only snapshot of an isolate chain.
type View struct {
	layers []*table
}

// Candidates returns every entry registered for route, innermost layer first.
func (v *View) Candidates(route signature.Route) []apis.Candidate {
	var out []apis.Candidate
	for layer, t := range v.layers {
		for _, c := range t.routes[route] {
			c.Layer = layer
			out = append(out, c)
		}
	}
	return out
}

// Artifact returns the artifact of the most recently applied collector of
// the innermost layer that has one.
func (v *View) Artifact(key signature.ArtifactKey) (any, bool) {
	for _, t := range v.layers {
		if a, ok := t.artifacts[key]; ok {
			return a, true
		}
	}
	return nil, false
}

// Routes returns the routes with at least one entry, in no particular order.
func (v *View) Routes() []signature.Route {
	seen := mapset.NewThreadUnsafeSet[signature.Route]()
	for _, t := range v.layers {
		for r := range t.routes {
			seen.Add(r)
		}
	}
	return seen.ToSlice()
}

// Generations returns the generation of every layer, innermost first.
func (v *View) Generations() []uint64 {
	out := make([]uint64, len(v.layers))
	for i, t := range v.layers {
		out[i] = t.generation
	}
	return out
}
