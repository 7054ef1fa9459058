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

package capx_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/atomic"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"dirpx.dev/capx"
	"dirpx.dev/capx/account"
	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/builder"
	"dirpx.dev/capx/collector"
	"dirpx.dev/capx/config"
	"dirpx.dev/capx/errors"
	"dirpx.dev/capx/metric"
	"dirpx.dev/capx/signature"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const send signature.Capability = "send"

var (
	landQQ  = address.MustPattern(nil, address.Is(address.Land, "qq"))
	groupQQ = address.MustPattern(nil, address.Is(address.Land, "qq"), address.Is(address.Group, "7"))
)

func tagged(tag string) apis.Impl {
	return func(context.Context, *apis.Context, apis.Call) (any, error) { return tag, nil }
}

// countingBuilder records how many resolvers it built.
type countingBuilder struct {
	inner apis.Builder
	built atomic.Int64
	exts  []any
}

func (b *countingBuilder) BuildResolver(cfg apis.Config, prev apis.Resolver, ext any) apis.Resolver {
	b.built.Inc()
	b.exts = append(b.exts, ext)
	return b.inner.BuildResolver(cfg, prev, ext)
}

type fixedResolver struct{ sel apis.Selection }

func (f fixedResolver) Resolve(apis.Table, apis.Call, *apis.Context, apis.Config) (apis.Selection, error) {
	return f.sel, nil
}

func newRuntime(t *testing.T, opts ...capx.Option) *capx.Runtime {
	t.Helper()
	rt, err := capx.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rt.Shutdown(context.Background())) })
	return rt
}

func connect(t *testing.T, rt *capx.Runtime, land, id string) *apis.Context {
	t.Helper()
	p := account.NewProtocol(land, land)
	route := address.Must(address.Seg(address.Land, land), address.Seg(address.Account, id))
	_, _, err := rt.Accounts().Connect(account.Info{Route: route, Account: account.NewBase(route, p)})
	require.NoError(t, err)
	c, err := rt.NewContext(route)
	require.NoError(t, err)
	return c
}

func collect(t *testing.T, rt *capx.Runtime, name string, p address.Pattern) *collector.Collector {
	t.Helper()
	c := rt.NewCollector(name)
	require.NoError(t, c.Register(send, p, tagged(name)))
	return c
}

func invoke(ctx context.Context, c *apis.Context, target string) (any, error) {
	return c.Call(ctx, apis.Call{Capability: send, Target: address.MustParse(target)})
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := capx.New(capx.WithConfig(apis.Config{MaxUnwrap: -1}))
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestRoutingScenario(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)
	c := connect(t, rt, "qq", "1")

	a := collect(t, rt, "A", landQQ)
	b := collect(t, rt, "B", groupQQ)

	_, err := rt.Apply(ctx, a)
	require.NoError(t, err)
	out, err := invoke(ctx, c, "land(qq).group(7)")
	require.NoError(t, err)
	assert.Equal(t, "A", out)

	_, err = rt.Apply(ctx, b)
	require.NoError(t, err)
	out, err = invoke(ctx, c, "land(qq).group(7)")
	require.NoError(t, err)
	assert.Equal(t, "B", out)

	_, err = rt.Withdraw(ctx, b)
	require.NoError(t, err)
	out, err = invoke(ctx, c, "land(qq).group(7)")
	require.NoError(t, err)
	assert.Equal(t, "A", out)

	_, err = invoke(ctx, c, "land(tg).group(7)")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestProtocolIsolateShadowsGlobal(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)
	qq := connect(t, rt, "qq", "1")
	tg := connect(t, rt, "tg", "1")

	_, err := rt.Apply(ctx, collect(t, rt, "global", address.Pattern{}))
	require.NoError(t, err)
	_, err = rt.Protocol("qq").Apply(ctx, collect(t, rt, "qq", address.Pattern{}))
	require.NoError(t, err)

	assert.Same(t, rt.Protocol("qq"), rt.Protocol("qq"))
	assert.Same(t, rt.Global(), rt.Protocol("qq").Parent())

	out, err := invoke(ctx, qq, "land(qq).group(1)")
	require.NoError(t, err)
	assert.Equal(t, "qq", out)

	out, err = invoke(ctx, tg, "land(tg).group(1)")
	require.NoError(t, err)
	assert.Equal(t, "global", out)
}

func TestCallWithoutTargetUsesSelf(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)
	c := connect(t, rt, "qq", "1")
	self := address.MustPattern(nil, address.Is(address.Land, "qq"), address.Is(address.Account, "1"))
	_, err := rt.Apply(ctx, collect(t, rt, "self", self))
	require.NoError(t, err)

	out, err := c.Call(ctx, apis.Call{Capability: send})
	require.NoError(t, err)
	assert.Equal(t, "self", out)
}

func TestNewContext(t *testing.T) {
	rt := newRuntime(t)
	c := connect(t, rt, "qq", "1")
	assert.Equal(t, "qq", c.Protocol.Name())
	assert.Equal(t, "land(qq).account(1)", c.Self.String())
	assert.Equal(t, "land(qq)", c.Land().String())
	assert.NotEqual(t, c.ID, connect(t, rt, "qq", "2").ID)

	_, err := rt.NewContext(address.MustParse("land(qq).account(9)"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAccountNotFound)
}

func TestInvokeErrors(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)
	c := connect(t, rt, "qq", "1")
	boom := fmt.Errorf("upstream refused")

	col := rt.NewCollector("failing")
	require.NoError(t, col.Register(send, landQQ, func(context.Context, *apis.Context, apis.Call) (any, error) {
		return nil, boom
	}))
	_, err := rt.Apply(ctx, col)
	require.NoError(t, err)

	_, err = invoke(ctx, c, "land(qq)")
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.IsNotFound(err))
	assert.False(t, errors.IsConfiguration(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = invoke(cancelled, c, "land(qq)")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = rt.Invoke(ctx, nil, apis.Call{Capability: send})
	assert.ErrorIs(t, err, errors.ErrNilContext)
}

func TestArtifactLookup(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)
	c := connect(t, rt, "qq", "1")
	key := signature.ArtifactKey{Kind: "test", Name: "k"}

	global := rt.NewCollector("global")
	require.NoError(t, global.RegisterArtifact(key, "global"))
	_, err := rt.Apply(ctx, global)
	require.NoError(t, err)

	v, ok := c.Artifact(key)
	require.True(t, ok)
	assert.Equal(t, "global", v)

	local := rt.NewCollector("qq")
	require.NoError(t, local.RegisterArtifact(key, "qq"))
	_, err = rt.Protocol("qq").Apply(ctx, local)
	require.NoError(t, err)

	v, ok = c.Artifact(key)
	require.True(t, ok)
	assert.Equal(t, "qq", v)
}

func TestStrictDuplicatesFollowConfig(t *testing.T) {
	rt := newRuntime(t, capx.WithConfig(config.NewConfig(config.WithStrictDuplicates(true))))
	col := rt.NewCollector("strict")
	require.NoError(t, col.Register(send, landQQ, tagged("a")))
	err := col.Register(send, landQQ, tagged("b"))
	assert.ErrorIs(t, err, errors.ErrDuplicateSignature)
}

func TestSetConfigRebuildsResolver(t *testing.T) {
	b := &countingBuilder{inner: builder.New()}
	rt := newRuntime(t, capx.WithBuilder(b))
	assert.EqualValues(t, 1, b.built.Load())

	cfg := config.NewConfig(config.WithDisableReflect(true))
	require.NoError(t, rt.SetConfig(cfg))
	assert.EqualValues(t, 2, b.built.Load())
	assert.True(t, rt.Config().DisableReflect)

	err := rt.SetConfig(apis.Config{MaxUnwrap: -1})
	require.Error(t, err)
	assert.True(t, rt.Config().DisableReflect)
	assert.EqualValues(t, 2, b.built.Load())
}

func TestPinnedResolverSurvivesRebuilds(t *testing.T) {
	ctx := context.Background()
	b := &countingBuilder{inner: builder.New()}
	rt := newRuntime(t, capx.WithBuilder(b))
	c := connect(t, rt, "qq", "1")

	pinned := &fixedResolver{sel: apis.Selection{Candidate: apis.Candidate{Entry: apis.Entry{Impl: tagged("pinned")}}}}
	rt.SetResolver(pinned)
	assert.True(t, rt.IsResolverPinned())

	require.NoError(t, rt.SetConfig(config.DefaultConfig()))
	require.NoError(t, capx.SetExt(rt, "ext"))
	assert.EqualValues(t, 1, b.built.Load())
	assert.Same(t, pinned, rt.Resolver())

	out, err := invoke(ctx, c, "land(qq)")
	require.NoError(t, err)
	assert.Equal(t, "pinned", out)

	rt.UnpinResolver()
	assert.False(t, rt.IsResolverPinned())
	require.NoError(t, rt.SetConfig(config.DefaultConfig()))
	assert.EqualValues(t, 2, b.built.Load())
	_, stillPinned := rt.Resolver().(*fixedResolver)
	assert.False(t, stillPinned)

	rt.PinResolver()
	assert.True(t, rt.IsResolverPinned())
}

func TestSetBuilderAndExt(t *testing.T) {
	rt := newRuntime(t)
	assert.ErrorIs(t, rt.SetBuilder(nil), capx.ErrNilBuilder)

	b := &countingBuilder{inner: builder.New()}
	require.NoError(t, rt.SetBuilder(b))
	assert.Same(t, b, rt.Builder())
	require.NoError(t, capx.SetExt(rt, 42))

	ext, ok := capx.ExtAs[int](rt)
	require.True(t, ok)
	assert.Equal(t, 42, ext)
	_, ok = capx.ExtAs[string](rt)
	assert.False(t, ok)
	assert.Equal(t, []any{nil, 42}, b.exts)
}

func TestMetricsAndLogOutput(t *testing.T) {
	ctx := context.Background()
	m, err := metric.NewRoutingMetric(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	var buf bytes.Buffer
	rt := newRuntime(t,
		capx.WithMetric(m),
		capx.WithConfig(config.NewConfig(config.WithLogLevel("debug"))),
		capx.WithLogOutput(&buf),
	)
	c := connect(t, rt, "qq", "1")

	_, err = invoke(ctx, c, "land(qq)")
	require.Error(t, err)
	assert.Contains(t, buf.String(), "land(qq)")
}

func TestConcurrentInvokeDuringApply(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)
	c := connect(t, rt, "qq", "1")
	_, err := rt.Apply(ctx, collect(t, rt, "base", landQQ))
	require.NoError(t, err)

	cols := make([]*collector.Collector, 8)
	for i := range cols {
		cols[i] = collect(t, rt, fmt.Sprintf("c%d", i), groupQQ)
	}

	var g errgroup.Group
	for _, col := range cols {
		g.Go(func() error {
			if _, err := rt.Apply(ctx, col); err != nil {
				return err
			}
			_, err := rt.Withdraw(ctx, col)
			return err
		})
		g.Go(func() error {
			for j := 0; j < 50; j++ {
				out, err := invoke(ctx, c, "land(qq).group(7)")
				if err != nil {
					return err
				}
				if out == "base" {
					continue
				}
				if s, ok := out.(string); !ok || s[0] != 'c' {
					return fmt.Errorf("unexpected result %v", out)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	out, err := invoke(ctx, c, "land(qq).group(7)")
	require.NoError(t, err)
	assert.Equal(t, "base", out)
}

func TestShutdownWithdrawsEverything(t *testing.T) {
	ctx := context.Background()
	rt, err := capx.New()
	require.NoError(t, err)
	c := connect(t, rt, "qq", "1")
	_, err = rt.Apply(ctx, collect(t, rt, "g", landQQ))
	require.NoError(t, err)
	_, err = rt.Protocol("qq").Apply(ctx, collect(t, rt, "p", landQQ))
	require.NoError(t, err)

	require.NoError(t, rt.Shutdown(ctx))
	assert.Empty(t, rt.Global().Collectors())
	assert.Empty(t, rt.Protocol("qq").Collectors())
	assert.Zero(t, rt.Accounts().Len())

	_, err = invoke(ctx, c, "land(qq)")
	assert.True(t, errors.IsNotFound(err))
}

func TestCollectAppliesImmediately(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)
	c := connect(t, rt, "qq", "1")

	col, err := rt.Collect(ctx, rt.Protocol("qq"), "qq", func(col *collector.Collector) error {
		return col.Register(send, landQQ, tagged("collected"))
	})
	require.NoError(t, err)
	assert.True(t, rt.Protocol("qq").Applied(col))
	out, err := invoke(ctx, c, "land(qq)")
	require.NoError(t, err)
	assert.Equal(t, "collected", out)

	global, err := rt.Collect(ctx, nil, "global", nil)
	require.NoError(t, err)
	assert.True(t, rt.Global().Applied(global))

	boom := fmt.Errorf("fill failed")
	_, err = rt.Collect(ctx, nil, "broken", func(*collector.Collector) error { return boom })
	assert.ErrorIs(t, err, boom)

	_, err = rt.Collect(ctx, nil, "ambiguous", func(col *collector.Collector) error {
		if err := col.Register(send, address.MustPattern(nil, address.Is(address.Land, "qq"), address.Has(address.Group)), tagged("g")); err != nil {
			return err
		}
		return col.Register(send, address.MustPattern(nil, address.Is(address.Land, "qq"), address.Has(address.Member)), tagged("m"))
	})
	assert.ErrorIs(t, err, errors.ErrAmbiguousSignature)
	assert.Len(t, rt.Global().Collectors(), 1)
}
