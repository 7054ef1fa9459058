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
	"context"

	"github.com/google/uuid"

	"dirpx.dev/capx/address"
	"dirpx.dev/capx/errors"
	"dirpx.dev/capx/signature"
)

// Protocol is an active protocol adapter instance.
type Protocol interface {
	// Name identifies the protocol, e.g. "onebot11".
	Name() string
	// Land is the root address of the network the protocol speaks to.
	Land() address.Address
}

// Account is an active account owned by a protocol.
type Account interface {
	// Route is the account address, e.g. land(qq).account(10001).
	Route() address.Address
	// Protocol returns the owning protocol instance.
	Protocol() Protocol
	// Available reports whether the account can currently serve calls.
	Available() bool
}

// Invoker performs resolution and invocation of a call for a Context.
type Invoker interface {
	// Invoke resolves call for c and runs the selected implementation.
	Invoke(ctx context.Context, c *Context, call Call) (any, error)
	// Artifact looks key up in the table serving c.
	Artifact(c *Context, key signature.ArtifactKey) (any, bool)
}

// Context is the per-call binding visible to an implementation.
// It is owned by the call that created it and must not be shared across
// unrelated call chains.
type Context struct {
	// ID identifies the call chain for logs.
	ID uuid.UUID
	// Protocol is the protocol instance serving the call.
	Protocol Protocol
	// Account is the account instance serving the call.
	Account Account
	// Self is the calling perspective, usually the account address.
	Self address.Address
	// Invoker routes chained calls issued from inside an implementation.
	Invoker Invoker
}

// Land returns the land the context operates in.
func (c *Context) Land() address.Address {
	if c == nil || c.Protocol == nil {
		return address.Address{}
	}
	return c.Protocol.Land()
}

// Call issues a chained call through the context's invoker.
func (c *Context) Call(ctx context.Context, call Call) (any, error) {
	if c == nil || c.Invoker == nil {
		return nil, errors.ErrNilContext
	}
	return c.Invoker.Invoke(ctx, c, call)
}

// Artifact looks up an artifact, such as a serializer, for the context.
func (c *Context) Artifact(key signature.ArtifactKey) (any, bool) {
	if c == nil || c.Invoker == nil {
		return nil, false
	}
	return c.Invoker.Artifact(c, key)
}

// Call is one capability invocation as issued by application code.
type Call struct {
	// Capability is the abstract operation.
	Capability signature.Capability
	// Subject narrows the capability to a subject type, e.g. a metadata type.
	Subject string
	// Target is the explicit target address, if the call site gave one.
	Target address.Address
	// Args are the original call-site arguments, passed to the implementation unchanged.
	Args []any
}

// Route returns the capability/subject part of the call.
func (c Call) Route() signature.Route {
	return signature.Route{Capability: c.Capability, Subject: c.Subject}
}

// Impl is a capability implementation. The Context passed in is the
// calling context, already bound by the resolver.
type Impl func(ctx context.Context, c *Context, call Call) (any, error)
