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

package strategy

import (
	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
)

// NewAddressableStrategy creates an apis.Strategy that uses the first
// argument that is an address.Address or implements apis.Addressable.
func NewAddressableStrategy() apis.Strategy {
	return &addressableStrategy{}
}

// addressableStrategy is a zero-cost path for arguments that know their address.
type addressableStrategy struct{}

var _ apis.Strategy = (*addressableStrategy)(nil)

// TryDerive scans call.Args in order.
func (*addressableStrategy) TryDerive(call apis.Call, _ *apis.Context, _ apis.Config) (address.Address, bool) {
	for _, arg := range call.Args {
		switch v := arg.(type) {
		case address.Address:
			if !v.IsZero() {
				return v, true
			}
		case *address.Address:
			if v != nil && !v.IsZero() {
				return *v, true
			}
		case apis.Addressable:
			if a := v.Address(); !a.IsZero() {
				return a, true
			}
		}
	}
	return address.Address{}, false
}
