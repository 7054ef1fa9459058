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

package apis

import (
	"dirpx.dev/capx/address"
)

// Strategy is a pluggable address derivation step. A Resolver chains
// strategies in order (e.g., Target -> Addressable -> Reflect -> Perspective).
type Strategy interface {
	// TryDerive returns (address, true) if it could derive the address
	// a call targets; otherwise (zero, false) to fall through.
	TryDerive(call Call, c *Context, cfg Config) (addr address.Address, handled bool)
}

// Addressable is implemented by call-site arguments that know their address.
type Addressable interface {
	Address() address.Address
}
