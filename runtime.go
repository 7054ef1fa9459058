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

package capx

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"dirpx.dev/capx/account"
	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/builder"
	"dirpx.dev/capx/collector"
	"dirpx.dev/capx/config"
	capxerrors "dirpx.dev/capx/errors"
	"dirpx.dev/capx/internal/xsync"
	"dirpx.dev/capx/isolate"
	"dirpx.dev/capx/log"
	"dirpx.dev/capx/metric"
	"dirpx.dev/capx/signature"
)

// GlobalIsolate is the name of the runtime's root isolate.
const GlobalIsolate = "global"

var (
	// ErrNilResolver is returned when a builder returns a nil resolver.
	ErrNilResolver = errors.New("capx: builder returned nil resolver")
	// ErrNilBuilder is returned when a nil builder is installed.
	ErrNilBuilder = errors.New("capx: nil builder")
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithConfig sets the initial configuration.
func WithConfig(cfg apis.Config) Option {
	return func(r *Runtime) { r.init.cfg = cfg }
}

// WithLogger sets the runtime logger.
func WithLogger(l log.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// WithLogOutput logs to writers at the configured LogLevel.
func WithLogOutput(writers ...io.Writer) Option {
	return func(r *Runtime) { r.outputs = writers }
}

// WithMetric records routing metrics on m.
func WithMetric(m *metric.RoutingMetric) Option {
	return func(r *Runtime) { r.metric = m }
}

// WithBuilder sets the builder used to (re)build the resolver.
func WithBuilder(b apis.Builder) Option {
	return func(r *Runtime) { r.init.bld = b }
}

// WithResolver installs res and pins it.
func WithResolver(res apis.Resolver) Option {
	return func(r *Runtime) {
		r.init.res = res
		r.init.pres = res != nil
	}
}

// WithExt sets the extension value passed to the builder.
func WithExt(ext any) Option {
	return func(r *Runtime) { r.init.ext = ext }
}

// WithAccounts shares an existing account registry.
func WithAccounts(accounts *account.Registry) Option {
	return func(r *Runtime) { r.accounts = accounts }
}

// Runtime owns the routing state of one process: the global isolate,
// one child isolate per protocol, the account registry and the resolver
// snapshot. It is constructed on startup, mutated only through its
// methods and torn down with Shutdown.
type Runtime struct {
	logger  log.Logger
	outputs []io.Writer
	metric  *metric.RoutingMetric
	init    state

	global    *isolate.Isolate
	protocols *xsync.Map[string, *isolate.Isolate]
	accounts  *account.Registry

	// buildMu serializes writers (reconfigurations/swaps) so we never publish
	// partially-built snapshots.
	buildMu sync.Mutex
	st      atomic.Pointer[state]
}

// state is a resolver snapshot.
// Immutable snapshot published atomically via st.Store; never mutate fields
// of a published state. Writers create a new state and swap it atomically.
type state struct {
	// cfg is the routing configuration.
	cfg apis.Config
	// ext is the builder extension value.
	ext any
	// res is the resolver.
	res apis.Resolver
	// bld is the builder.
	bld apis.Builder
	// pres indicates whether res is pinned.
	pres bool
}

// New constructs a Runtime.
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{init: state{cfg: config.DefaultConfig()}}
	for _, opt := range opts {
		opt(r)
	}
	if err := config.Validate(r.init.cfg); err != nil {
		return nil, err
	}
	if r.logger == nil {
		r.logger = log.DiscardLogger
		if len(r.outputs) > 0 {
			level, _ := log.ParseLevel(r.init.cfg.LogLevel)
			r.logger = log.NewZap(level, r.outputs...)
		}
	}
	if r.init.bld == nil {
		r.init.bld = builder.New()
	}
	if r.init.res == nil {
		r.init.res = r.init.bld.BuildResolver(r.init.cfg, nil, r.init.ext)
		if r.init.res == nil {
			return nil, ErrNilResolver
		}
	}
	if r.accounts == nil {
		r.accounts = account.NewRegistry(account.WithLogger(r.logger))
	}

	r.global = isolate.New(GlobalIsolate, isolate.WithLogger(r.logger), isolate.WithMetric(r.metric))
	r.protocols = xsync.NewMap[string, *isolate.Isolate]()
	s := r.init
	r.st.Store(&s)
	return r, nil
}

// Logger returns the runtime logger.
func (r *Runtime) Logger() log.Logger { return r.logger }

// Global returns the root isolate.
func (r *Runtime) Global() *isolate.Isolate { return r.global }

// Protocol returns the isolate of the named protocol, creating it over
// the global isolate on first use.
func (r *Runtime) Protocol(name string) *isolate.Isolate {
	if iso, ok := r.protocols.Get(name); ok {
		return iso
	}
	iso, _ := r.protocols.SetIfAbsent(name, r.global.Child(name))
	return iso
}

// Accounts returns the account registry.
func (r *Runtime) Accounts() *account.Registry { return r.accounts }

// NewCollector returns an open collector configured like the runtime.
func (r *Runtime) NewCollector(name string) *collector.Collector {
	return collector.New(name,
		collector.WithConfig(r.Config()),
		collector.WithLogger(r.logger),
	)
}

// Apply applies c to the global isolate.
func (r *Runtime) Apply(ctx context.Context, c *collector.Collector) (bool, error) {
	return r.global.Apply(ctx, c)
}

// Collect builds a collector with fill and applies it right away to iso,
// or to the global isolate when iso is nil. On failure nothing is applied.
func (r *Runtime) Collect(ctx context.Context, iso *isolate.Isolate, name string, fill func(*collector.Collector) error) (*collector.Collector, error) {
	if iso == nil {
		iso = r.global
	}
	c := r.NewCollector(name)
	if fill != nil {
		if err := fill(c); err != nil {
			return nil, err
		}
	}
	if _, err := iso.Apply(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Withdraw withdraws c from the global isolate.
func (r *Runtime) Withdraw(ctx context.Context, c *collector.Collector) (bool, error) {
	return r.global.Withdraw(ctx, c)
}

// NewContext builds a call context for the account active at route.
func (r *Runtime) NewContext(route address.Address) (*apis.Context, error) {
	info, err := r.accounts.Get(route)
	if err != nil {
		return nil, err
	}
	return &apis.Context{
		ID:       uuid.New(),
		Protocol: info.Protocol,
		Account:  info.Account,
		Self:     info.Route,
		Invoker:  r,
	}, nil
}

// View returns the table serving c: its protocol isolate when one
// exists, the global isolate otherwise.
func (r *Runtime) View(c *apis.Context) *isolate.View {
	if c != nil && c.Protocol != nil {
		if iso, ok := r.protocols.Get(c.Protocol.Name()); ok {
			return iso.View()
		}
	}
	return r.global.View()
}

// Resolve selects the implementation serving call for c without running it.
func (r *Runtime) Resolve(ctx context.Context, c *apis.Context, call apis.Call) (apis.Selection, error) {
	if err := ctx.Err(); err != nil {
		return apis.Selection{}, err
	}
	s := r.st.Load()
	sel, err := s.res.Resolve(r.View(c), call, c, s.cfg)
	if err != nil {
		if capxerrors.IsNotFound(err) {
			r.metric.RecordResolution(ctx, string(call.Capability), false)
			r.logger.With("capability", call.Route().String()).Debug(err.Error())
		}
		return apis.Selection{}, err
	}
	r.metric.RecordResolution(ctx, string(call.Capability), true)
	return sel, nil
}

var _ apis.Invoker = (*Runtime)(nil)

// Invoke resolves call and runs the selected implementation bound to c.
// The implementation's result and error are returned unchanged.
func (r *Runtime) Invoke(ctx context.Context, c *apis.Context, call apis.Call) (any, error) {
	if c == nil {
		return nil, capxerrors.ErrNilContext
	}
	sel, err := r.Resolve(ctx, c, call)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := sel.Impl(ctx, c, call)
	r.metric.RecordInvocation(ctx, string(call.Capability), time.Since(start), err != nil)
	return out, err
}

// Artifact looks key up in the table serving c.
func (r *Runtime) Artifact(c *apis.Context, key signature.ArtifactKey) (any, bool) {
	return r.View(c).Artifact(key)
}

// Shutdown withdraws every collector, protocol isolates first, and
// disconnects every account.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var err error
	for _, iso := range r.protocols.Values() {
		err = multierr.Append(err, withdrawAll(ctx, iso))
	}
	err = multierr.Append(err, withdrawAll(ctx, r.global))
	r.accounts.Reset()
	return err
}

func withdrawAll(ctx context.Context, iso *isolate.Isolate) error {
	cs := iso.Collectors()
	var err error
	for i := len(cs) - 1; i >= 0; i-- {
		_, werr := iso.Withdraw(ctx, cs[i])
		err = multierr.Append(err, werr)
	}
	return err
}
