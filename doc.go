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

// Package capx routes capability calls to the implementation registered
// for the most specific matching address.
//
// Protocol adapters describe what they can do by registering
// implementations in a Collector. Each registration is a Signature: a
// capability identifier plus an address Pattern such as
// land(qq).group(*). A sealed collector is applied to an Isolate, which
// republishes its lookup table atomically. Calls carry a Context naming
// the protocol and account they run for; the Resolver derives the target
// address of the call and picks the candidate whose pattern matches it
// with the highest specificity.
//
// # Runtime
//
// Runtime owns the routing state of one process:
//
//   - a global isolate and one child isolate per protocol, so protocol
//     specific collectors shadow global ones without touching them;
//   - the account registry used to build call contexts;
//   - a resolver snapshot made of the routing Config, the Builder that
//     produces the resolver, an opaque extension value passed to the
//     builder, and the resolver itself.
//
// Reads load the snapshot atomically and never lock. Writers (SetConfig,
// SetBuilder, SetExt, SetResolver) take a short build mutex, derive a new
// snapshot and publish it with one pointer swap.
//
// # Pinning
//
// SetResolver installs a resolver and pins it: later SetConfig or
// SetBuilder calls keep it until UnpinResolver is called.
//
// # Typical use
//
//	rt, _ := capx.New(capx.WithLogOutput(os.Stderr))
//	col := rt.NewCollector("qq")
//	_ = capability.MessageSend.Collect(col, pattern, sendImpl)
//	_, _ = rt.Protocol("qq").Apply(ctx, col)
//
//	c, _ := rt.NewContext(route)
//	id, err := capability.Send(ctx, c, target, chain, address.Address{})
package capx
