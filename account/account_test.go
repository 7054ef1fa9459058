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

package account_test

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"dirpx.dev/capx/account"
	"dirpx.dev/capx/address"
	"dirpx.dev/capx/errors"
)

func newInfo(land, id string) account.Info {
	p := account.NewProtocol(land+"-proto", land)
	route := address.Must(address.Seg(address.Land, land), address.Seg(address.Account, id))
	return account.Info{Route: route, Account: account.NewBase(route, p), Platform: land}
}

func TestConnectAndDisconnect(t *testing.T) {
	r := account.NewRegistry()
	info := newInfo("qq", "1")

	active, stored, err := r.Connect(info)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, "qq-proto", active.Protocol.Name())
	assert.False(t, active.ConnectedAt.IsZero())

	// a second connect keeps the active account
	again := newInfo("qq", "1")
	active2, stored, err := r.Connect(again)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Same(t, active.Account, active2.Account)

	got, err := r.Get(address.MustParse("land(qq).account(1)"))
	require.NoError(t, err)
	assert.Same(t, info.Account, got.Account)
	assert.True(t, r.Has(info.Route))

	_, ok := r.Disconnect(info.Route)
	assert.True(t, ok)
	_, ok = r.Disconnect(info.Route)
	assert.False(t, ok)

	_, err = r.Get(info.Route)
	assert.ErrorIs(t, err, errors.ErrAccountNotFound)
}

func TestConnectRejectsInvalidInfo(t *testing.T) {
	r := account.NewRegistry()
	_, _, err := r.Connect(account.Info{})
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	_, _, err = r.Connect(account.Info{Route: address.MustParse("land(qq).account(1)")})
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	assert.Zero(t, r.Len())
}

func TestMatch(t *testing.T) {
	r := account.NewRegistry()
	for _, info := range []account.Info{newInfo("qq", "2"), newInfo("qq", "1"), newInfo("tg", "1")} {
		_, _, err := r.Connect(info)
		require.NoError(t, err)
	}

	qq := r.Match(address.MustPattern(nil, address.Is(address.Land, "qq"), address.Has(address.Account)))
	require.Len(t, qq, 2)
	assert.Equal(t, "land(qq).account(1)", qq[0].Route.String())
	assert.Equal(t, "land(qq).account(2)", qq[1].Route.String())

	assert.Len(t, r.Match(address.Pattern{}), 3)

	r.Reset()
	assert.Zero(t, r.Len())
}

func TestBaseAvailability(t *testing.T) {
	info := newInfo("qq", "1")
	base := info.Account.(*account.Base)
	assert.True(t, base.Available())
	base.SetAvailable(false)
	assert.False(t, base.Available())
	assert.Equal(t, "land(qq)", base.Protocol().Land().String())
}

func TestConcurrentConnect(t *testing.T) {
	r := account.NewRegistry()
	var g errgroup.Group
	for w := 0; w < runtime.GOMAXPROCS(0)*4; w++ {
		g.Go(func() error {
			for i := 0; i < 100; i++ {
				info := newInfo("qq", fmt.Sprint(i%10))
				if _, _, err := r.Connect(info); err != nil {
					return err
				}
				if i%3 == 0 {
					r.Disconnect(info.Route)
				}
				r.Match(address.Pattern{})
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.LessOrEqual(t, r.Len(), 10)
}
