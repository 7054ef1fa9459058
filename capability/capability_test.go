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

package capability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/capx"
	"dirpx.dev/capx/account"
	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/capability"
	"dirpx.dev/capx/collector"
	"dirpx.dev/capx/errors"
)

var (
	anyGroup   = address.MustPattern(nil, address.Is(address.Land, "qq"), address.Has(address.Group))
	anyMessage = address.MustPattern(nil, address.Is(address.Land, "qq"), address.Has(address.Message))
	anyScene   = address.MustPattern(nil, address.Is(address.Land, "qq"))
	group7     = address.MustParse("land(qq).group(7)")
)

type image struct{ URL string }

func setup(t *testing.T, register func(col *collector.Collector)) *apis.Context {
	t.Helper()
	ctx := context.Background()
	rt, err := capx.New()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rt.Shutdown(ctx)) })

	col := rt.NewCollector("qq")
	register(col)
	_, err = rt.Protocol("qq").Apply(ctx, col)
	require.NoError(t, err)

	route := address.MustParse("land(qq).account(1)")
	p := account.NewProtocol("qq", "qq")
	_, _, err = rt.Accounts().Connect(account.Info{Route: route, Account: account.NewBase(route, p)})
	require.NoError(t, err)
	c, err := rt.NewContext(route)
	require.NoError(t, err)
	return c
}

func plain(_ context.Context, _ *apis.Context, e capability.Text) (any, error) {
	return map[string]any{"type": "Plain", "text": e.Text}, nil
}

func TestSendSerializesThroughContext(t *testing.T) {
	var wire []any
	c := setup(t, func(col *collector.Collector) {
		require.NoError(t, capability.CollectSerializer(col, plain))
		require.NoError(t, capability.MessageSend.Collect(col, anyGroup,
			func(ctx context.Context, c *apis.Context, target address.Address, req capability.SendRequest) (address.Address, error) {
				out, err := capability.Serialize(ctx, c, req.Content)
				if err != nil {
					return address.Address{}, err
				}
				wire = out
				return target.Append(address.Message, "99")
			}))
	})

	id, err := capability.Send(context.Background(), c, group7, capability.Chain{capability.Text{Text: "hi"}}, address.Address{})
	require.NoError(t, err)
	assert.Equal(t, "land(qq).group(7).message(99)", id.String())
	assert.Equal(t, []any{map[string]any{"type": "Plain", "text": "hi"}}, wire)

	_, err = capability.Send(context.Background(), c, group7, capability.Chain{image{URL: "x"}}, address.Address{})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	_, err = capability.Send(context.Background(), c, address.MustParse("land(qq).friend(1)"), nil, address.Address{})
	assert.True(t, errors.IsNotFound(err))
}

func TestRevokeAndEdit(t *testing.T) {
	var revoked, edited address.Address
	var content capability.Chain
	c := setup(t, func(col *collector.Collector) {
		require.NoError(t, capability.MessageRevoke.Collect(col, anyMessage,
			func(_ context.Context, _ *apis.Context, target address.Address, _ capability.None) (capability.None, error) {
				revoked = target
				return capability.None{}, nil
			}))
		require.NoError(t, capability.MessageEdit.Collect(col, anyMessage,
			func(_ context.Context, _ *apis.Context, target address.Address, chain capability.Chain) (capability.None, error) {
				edited, content = target, chain
				return capability.None{}, nil
			}))
	})

	msg := group7.MustAppend(address.Message, "99")
	require.NoError(t, capability.Revoke(context.Background(), c, msg))
	assert.Equal(t, msg, revoked)

	chain := capability.Chain{capability.Text{Text: "edited"}}
	require.NoError(t, capability.Edit(context.Background(), c, msg, chain))
	assert.Equal(t, msg, edited)
	assert.Equal(t, chain, content)
}

func TestSummaryOperations(t *testing.T) {
	state := map[string]string{}
	c := setup(t, func(col *collector.Collector) {
		require.NoError(t, capability.SummarySetName.Collect(col, anyScene,
			func(_ context.Context, _ *apis.Context, target address.Address, name string) (capability.None, error) {
				state["name:"+target.String()] = name
				return capability.None{}, nil
			}))
		require.NoError(t, capability.SummaryUnsetName.Collect(col, anyScene,
			func(_ context.Context, _ *apis.Context, target address.Address, _ capability.None) (capability.None, error) {
				delete(state, "name:"+target.String())
				return capability.None{}, nil
			}))
		require.NoError(t, capability.SummarySetDescription.Collect(col, anyScene,
			func(_ context.Context, _ *apis.Context, target address.Address, d string) (capability.None, error) {
				state["desc:"+target.String()] = d
				return capability.None{}, nil
			}))
		require.NoError(t, capability.SummaryUnsetDescription.Collect(col, anyScene,
			func(_ context.Context, _ *apis.Context, target address.Address, _ capability.None) (capability.None, error) {
				delete(state, "desc:"+target.String())
				return capability.None{}, nil
			}))
	})
	ctx := context.Background()

	require.NoError(t, capability.SetName(ctx, c, group7, "devs"))
	require.NoError(t, capability.SetDescription(ctx, c, group7, "go"))
	assert.Equal(t, map[string]string{"name:land(qq).group(7)": "devs", "desc:land(qq).group(7)": "go"}, state)

	require.NoError(t, capability.UnsetName(ctx, c, group7))
	require.NoError(t, capability.UnsetDescription(ctx, c, group7))
	assert.Empty(t, state)
}

func TestPullBySubject(t *testing.T) {
	c := setup(t, func(col *collector.Collector) {
		require.NoError(t, capability.PullSummary.Collect(col, anyGroup,
			func(_ context.Context, _ *apis.Context, target address.Address) (capability.Summary, error) {
				id, _ := target.Get(address.Group)
				return capability.Summary{Name: "group " + id}, nil
			}))
		require.NoError(t, capability.PullCount.Collect(col, anyGroup,
			func(context.Context, *apis.Context, address.Address) (capability.Count, error) {
				return capability.Count{Current: 3, Max: 200}, nil
			}))
	})
	ctx := context.Background()

	s, err := capability.Pull[capability.Summary](ctx, c, group7)
	require.NoError(t, err)
	assert.Equal(t, "group 7", s.Name)

	n, err := capability.PullCount.Call(ctx, c, group7)
	require.NoError(t, err)
	assert.Equal(t, capability.Count{Current: 3, Max: 200}, n)

	_, err = capability.PullNick.Call(ctx, c, group7)
	require.Error(t, err)
	var nf *errors.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "capability.Nick", nf.Subject)
}

func TestSerializeWithoutContextArtifacts(t *testing.T) {
	_, err := capability.Serialize(context.Background(), &apis.Context{}, capability.Chain{capability.Text{Text: "x"}})
	assert.True(t, errors.IsNotFound(err))

	out, err := capability.Serialize(context.Background(), &apis.Context{}, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCollectSerializerRejectsNil(t *testing.T) {
	col := collector.New("qq")
	err := capability.CollectSerializer[capability.Text](col, nil)
	assert.ErrorIs(t, err, errors.ErrNilImplementation)
}

func TestFetchResource(t *testing.T) {
	c := setup(t, func(col *collector.Collector) {
		require.NoError(t, capability.FetchBlob.Collect(col,
			func(_ context.Context, _ *apis.Context, res address.Address) (capability.Blob, error) {
				id, _ := res.Get(address.Resource)
				return capability.Blob{Data: []byte(id), MediaType: "image/png"}, nil
			}))
	})
	ctx := context.Background()
	res := address.MustParse("land(qq).group(7).resource(abc)")

	b, err := capability.Fetch[capability.Blob](ctx, c, res)
	require.NoError(t, err)
	assert.Equal(t, capability.Blob{Data: []byte("abc"), MediaType: "image/png"}, b)

	_, err = capability.FetchBlob.Call(ctx, c, group7)
	assert.True(t, errors.IsNotFound(err))

	_, err = capability.Fetch[capability.Summary](ctx, c, res)
	assert.True(t, errors.IsNotFound(err))
}

func TestSerializePointerElements(t *testing.T) {
	urls := func(_ context.Context, _ *apis.Context, e *image) (any, error) { return e.URL, nil }
	c := setup(t, func(col *collector.Collector) {
		require.NoError(t, capability.CollectSerializer(col, plain))
		require.NoError(t, capability.CollectSerializer(col, urls))
	})
	ctx := context.Background()

	out, err := capability.Serialize(ctx, c, capability.Chain{&capability.Text{Text: "hi"}, image{URL: "u"}, &image{URL: "p"}})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"type": "Plain", "text": "hi"}, "u", "p"}, out)

	var missing *capability.Text
	_, err = capability.Serialize(ctx, c, capability.Chain{missing})
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}
