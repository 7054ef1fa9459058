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

package connection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"dirpx.dev/capx/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestSignalStore(t *testing.T) {
	s := NewSignal()
	assert.Equal(t, Disconnected, s.Load())
	assert.False(t, s.Store(Disconnected))
	assert.True(t, s.Store(Connected))
	assert.True(t, s.Store(Closed))
	assert.False(t, s.Store(Connected))
	assert.Equal(t, Closed, s.Load())
}

func TestSignalWait(t *testing.T) {
	s := NewSignal()
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error { return s.Wait(ctx, Connected) })
	}
	s.Store(Connecting)
	s.Store(Connected)
	require.NoError(t, g.Wait())
	require.NoError(t, s.Wait(ctx, Connected))
}

func TestSignalWaitHonoursContext(t *testing.T) {
	s := NewSignal()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx, Connected), context.DeadlineExceeded)
}

func TestSignalWaitAfterClose(t *testing.T) {
	s := NewSignal()
	s.Store(Closed)
	assert.NoError(t, s.Wait(context.Background(), Closed))
	err := s.Wait(context.Background(), Connected)
	assert.ErrorIs(t, err, errors.ErrConnectionClosed)
	assert.NotErrorIs(t, err, context.Canceled)
}
