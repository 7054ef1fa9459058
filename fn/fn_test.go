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

package fn_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/builder"
	"dirpx.dev/capx/collector"
	"dirpx.dev/capx/config"
	"dirpx.dev/capx/errors"
	"dirpx.dev/capx/fn"
	"dirpx.dev/capx/isolate"
	"dirpx.dev/capx/signature"
)

// invoker resolves calls against one isolate.
type invoker struct {
	iso *isolate.Isolate
	res apis.Resolver
}

func (i invoker) Invoke(ctx context.Context, c *apis.Context, call apis.Call) (any, error) {
	sel, err := i.res.Resolve(i.iso.View(), call, c, config.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return sel.Impl(ctx, c, call)
}

func (i invoker) Artifact(_ *apis.Context, key signature.ArtifactKey) (any, bool) {
	return i.iso.View().Artifact(key)
}

func setup(t *testing.T, collect func(c *collector.Collector)) *apis.Context {
	t.Helper()
	c := collector.New("test")
	collect(c)
	iso := isolate.New("test")
	_, err := iso.Apply(context.Background(), c)
	require.NoError(t, err)
	return &apis.Context{
		Self:    address.MustParse("land(x).account(1)"),
		Invoker: invoker{iso: iso, res: builder.New().BuildResolver(config.DefaultConfig(), nil, nil)},
	}
}

type GroupRef struct {
	Land  string `capx:"land"`
	Group string `capx:"group"`
}

type Nick struct{ Name string }

type Summary struct{ Name, Description string }

var landX = address.MustPattern(nil, address.Is(address.Land, "x"))

func TestFn(t *testing.T) {
	mute := fn.New[GroupRef, bool]("group.mute")
	c := setup(t, func(col *collector.Collector) {
		require.NoError(t, mute.Collect(col, landX, func(_ context.Context, ac *apis.Context, g GroupRef) (bool, error) {
			return g.Group == "7" && !ac.Self.IsZero(), nil
		}))
	})

	ok, err := mute.Call(context.Background(), c, GroupRef{Land: "x", Group: "7"})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = mute.Call(context.Background(), c, GroupRef{Land: "y", Group: "7"})
	assert.True(t, errors.IsNotFound(err))
}

func TestTargetFn(t *testing.T) {
	send := fn.NewTarget[string, string]("message.send")
	c := setup(t, func(col *collector.Collector) {
		require.NoError(t, send.Collect(col, landX, func(_ context.Context, _ *apis.Context, target address.Address, text string) (string, error) {
			return target.String() + ":" + text, nil
		}))
	})

	out, err := send.Call(context.Background(), c, address.MustParse("land(x).group(7)"), "hi")
	require.NoError(t, err)
	assert.Equal(t, "land(x).group(7):hi", out)
}

func TestPullFn(t *testing.T) {
	nick := fn.NewPull[Nick]()
	summary := fn.NewPull[Summary]()
	assert.Equal(t, "fn_test.Nick", nick.Subject)

	groupPath, err := address.FromPath(nil, "land.group", map[address.Axis]address.Matcher{
		address.Land: address.Literal("x"),
	})
	require.NoError(t, err)

	c := setup(t, func(col *collector.Collector) {
		require.NoError(t, nick.Collect(col, groupPath, func(_ context.Context, _ *apis.Context, target address.Address) (Nick, error) {
			g, _ := target.Get(address.Group)
			return Nick{Name: "group " + g}, nil
		}))
		require.NoError(t, summary.Collect(col, groupPath, func(context.Context, *apis.Context, address.Address) (Summary, error) {
			return Summary{Name: "s"}, nil
		}))
	})

	n, err := nick.Call(context.Background(), c, address.MustParse("land(x).group(7)"))
	require.NoError(t, err)
	assert.Equal(t, "group 7", n.Name)

	s, err := summary.Call(context.Background(), c, address.MustParse("land(x).group(7)"))
	require.NoError(t, err)
	assert.Equal(t, "s", s.Name)

	_, err = nick.Call(context.Background(), c, address.MustParse("land(x).friend(7)"))
	assert.True(t, errors.IsNotFound(err))
}

func TestArgumentMismatch(t *testing.T) {
	typed := fn.NewTarget[int, int]("typed")
	c := setup(t, func(col *collector.Collector) {
		require.NoError(t, typed.Collect(col, landX, func(_ context.Context, _ *apis.Context, _ address.Address, n int) (int, error) {
			return n * 2, nil
		}))
	})

	// the same capability called with a different argument type
	wrong := fn.NewTarget[string, int]("typed")
	_, err := wrong.Call(context.Background(), c, address.MustParse("land(x)"), "3")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	// and expecting a different result type
	wrongResult := fn.NewTarget[int, string]("typed")
	_, err = wrongResult.Call(context.Background(), c, address.MustParse("land(x)"), 3)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	out, err := typed.Call(context.Background(), c, address.MustParse("land(x)"), 3)
	require.NoError(t, err)
	assert.Equal(t, 6, out)
}

func TestExecutionErrorsPropagateUnchanged(t *testing.T) {
	boom := assert.AnError
	failing := fn.New[GroupRef, int]("failing")
	c := setup(t, func(col *collector.Collector) {
		require.NoError(t, failing.Collect(col, landX, func(context.Context, *apis.Context, GroupRef) (int, error) {
			return 0, boom
		}))
	})

	_, err := failing.Call(context.Background(), c, GroupRef{Land: "x", Group: "1"})
	assert.Same(t, boom, err)
	assert.False(t, errors.IsNotFound(err))
}

func TestNilImplementationAndContext(t *testing.T) {
	col := collector.New("test")
	assert.ErrorIs(t, fn.New[int, int]("a").Collect(col, landX, nil), errors.ErrNilImplementation)
	assert.ErrorIs(t, fn.NewTarget[int, int]("a").Collect(col, landX, nil), errors.ErrNilImplementation)
	assert.ErrorIs(t, fn.NewPull[Nick]().Collect(col, landX, nil), errors.ErrNilImplementation)

	_, err := fn.New[int, int]("a").Call(context.Background(), nil, 1)
	assert.ErrorIs(t, err, errors.ErrNilContext)
}

type Blob struct{ Data string }

func TestFetchBySubject(t *testing.T) {
	images := address.MustPattern(nil, address.Is(address.Land, "x"), address.Where(address.Resource, "image", func(v string) bool {
		return len(v) > 4 && v[:4] == "img-"
	}))
	c := setup(t, func(col *collector.Collector) {
		require.NoError(t, fn.NewFetch[Blob]().Collect(col, func(_ context.Context, _ *apis.Context, res address.Address) (Blob, error) {
			id, _ := res.Get(address.Resource)
			return Blob{Data: "raw:" + id}, nil
		}))
		require.NoError(t, fn.NewFetch[Nick]().CollectOn(col, images, func(_ context.Context, _ *apis.Context, res address.Address) (Nick, error) {
			id, _ := res.Get(address.Resource)
			return Nick{Name: id}, nil
		}))
	})
	ctx := context.Background()

	b, err := fn.NewFetch[Blob]().Call(ctx, c, address.MustParse("land(x).resource(img-1)"))
	require.NoError(t, err)
	assert.Equal(t, "raw:img-1", b.Data)

	n, err := fn.NewFetch[Nick]().Call(ctx, c, address.MustParse("land(x).resource(img-1)"))
	require.NoError(t, err)
	assert.Equal(t, "img-1", n.Name)

	_, err = fn.NewFetch[Nick]().Call(ctx, c, address.MustParse("land(x).resource(file-1)"))
	assert.True(t, errors.IsNotFound(err))
	_, err = fn.NewFetch[Summary]().Call(ctx, c, address.MustParse("land(x).resource(img-1)"))
	assert.True(t, errors.IsNotFound(err))
}

func TestFetchPatternNeedsResourceAxis(t *testing.T) {
	col := collector.New("test")
	err := fn.NewFetch[Blob]().CollectOn(col, landX, func(context.Context, *apis.Context, address.Address) (Blob, error) {
		return Blob{}, nil
	})
	assert.True(t, errors.IsConfiguration(err))
	assert.ErrorIs(t, err, errors.ErrMalformedPattern)
	assert.Zero(t, col.Len())

	assert.ErrorIs(t, fn.NewFetch[Blob]().Collect(col, nil), errors.ErrNilImplementation)
}
