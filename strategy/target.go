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

// Package strategy provides the address derivation steps chained by the
// resolver. Each strategy inspects a call and either derives the address
// the call targets or falls through to the next strategy.
package strategy

import (
	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
)

// NewTargetStrategy creates an apis.Strategy that returns the explicit
// target of a call.
func NewTargetStrategy() apis.Strategy {
	return targetStrategy{}
}

// targetStrategy is the fast path for calls like send(target, content).
type targetStrategy struct{}

var _ apis.Strategy = targetStrategy{}

// TryDerive returns call.Target when it is set.
func (targetStrategy) TryDerive(call apis.Call, _ *apis.Context, _ apis.Config) (address.Address, bool) {
	if call.Target.IsZero() {
		return address.Address{}, false
	}
	return call.Target, true
}

// NewPerspectiveStrategy creates an apis.Strategy that falls back to the
// calling perspective, e.g. for operations on the account itself.
func NewPerspectiveStrategy() apis.Strategy {
	return perspectiveStrategy{}
}

type perspectiveStrategy struct{}

var _ apis.Strategy = perspectiveStrategy{}

// TryDerive returns c.Self when the context carries one.
func (perspectiveStrategy) TryDerive(_ apis.Call, c *apis.Context, _ apis.Config) (address.Address, bool) {
	if c == nil || c.Self.IsZero() {
		return address.Address{}, false
	}
	return c.Self, true
}
