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

// Package connection defines the transport collaborator adapters use to
// reach a remote platform.
package connection

import (
	"context"
	"encoding/json"
	"iter"
	"sync"

	"dirpx.dev/capx/errors"
)

// State is the lifecycle state of a connection.
type State int32

const (
	// Disconnected is the initial state and the state between reconnects.
	Disconnected State = iota
	// Connecting is held while a link is being established.
	Connecting
	// Connected means frames can be sent and received.
	Connected
	// Closed is terminal: the connection never reconnects.
	Closed
)

// String returns the lower-case name of s, or "unknown".
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection is a live link to one remote account.
type Connection interface {
	// Name identifies the connection in logs.
	Name() string
	// State returns the current lifecycle state.
	State() State
	// Wait blocks until the connection reaches want or ctx ends. It fails
	// with errors.ErrConnectionClosed once the connection is closed.
	Wait(ctx context.Context, want State) error
	// Send writes one JSON payload.
	Send(ctx context.Context, payload any) error
	// Receive yields inbound frames until the current link drops or ctx
	// ends. A read failure is yielded once as the last element.
	Receive(ctx context.Context) iter.Seq2[json.RawMessage, error]
	// Close stops the connection for good.
	Close() error
}

// Signal publishes state transitions to waiters.
type Signal struct {
	mu      sync.Mutex
	state   State
	changed chan struct{}
}

// NewSignal returns a Signal in the Disconnected state.
func NewSignal() *Signal {
	return &Signal{changed: make(chan struct{})}
}

// Load returns the current state.
func (s *Signal) Load() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Store sets the state and wakes waiters. Closed is terminal.
func (s *Signal) Store(st State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == st || s.state == Closed {
		return false
	}
	s.state = st
	close(s.changed)
	s.changed = make(chan struct{})
	return true
}

// Wait blocks until the state is want or ctx ends. Waiting on any state
// other than Closed fails with errors.ErrConnectionClosed once the signal
// is closed.
func (s *Signal) Wait(ctx context.Context, want State) error {
	for {
		s.mu.Lock()
		st, ch := s.state, s.changed
		s.mu.Unlock()

		if st == want {
			return nil
		}
		if st == Closed {
			return errors.ErrConnectionClosed
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}
