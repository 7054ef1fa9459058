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

// Package fn provides typed capability descriptors.
//
// A descriptor names a capability once and offers both sides of it: Collect
// registers a typed implementation on a collector, Call issues a typed call
// through a Context. The untyped apis.Call in between is built and unpacked
// here, so adapters and applications never touch it.
package fn

import (
	"context"
	"fmt"
	"slices"

	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/collector"
	"dirpx.dev/capx/errors"
	"dirpx.dev/capx/signature"
)

// Fn is a capability whose target is derived from its argument.
type Fn[A, R any] struct {
	Capability signature.Capability
}

// New returns the descriptor of capability.
func New[A, R any](capability signature.Capability) Fn[A, R] {
	return Fn[A, R]{Capability: capability}
}

// Collect registers impl on c for pattern.
func (f Fn[A, R]) Collect(c *collector.Collector, pattern address.Pattern, impl func(ctx context.Context, c *apis.Context, arg A) (R, error)) error {
	if impl == nil {
		return c.Register(f.Capability, pattern, nil)
	}
	return c.Register(f.Capability, pattern, func(ctx context.Context, ac *apis.Context, call apis.Call) (any, error) {
		arg, err := argAt[A](call, 0)
		if err != nil {
			return nil, err
		}
		r, err := impl(ctx, ac, arg)
		return r, err
	})
}

// Call invokes the capability through c.
func (f Fn[A, R]) Call(ctx context.Context, c *apis.Context, arg A) (R, error) {
	out, err := c.Call(ctx, apis.Call{Capability: f.Capability, Args: []any{arg}})
	return result[R](f.Capability, out, err)
}

// TargetFn is a capability called with an explicit target address, e.g.
// sending a message to a group.
type TargetFn[A, R any] struct {
	Capability signature.Capability
}

// NewTarget returns the descriptor of capability.
func NewTarget[A, R any](capability signature.Capability) TargetFn[A, R] {
	return TargetFn[A, R]{Capability: capability}
}

// Collect registers impl on c for pattern.
func (f TargetFn[A, R]) Collect(c *collector.Collector, pattern address.Pattern, impl func(ctx context.Context, c *apis.Context, target address.Address, arg A) (R, error)) error {
	if impl == nil {
		return c.Register(f.Capability, pattern, nil)
	}
	return c.Register(f.Capability, pattern, func(ctx context.Context, ac *apis.Context, call apis.Call) (any, error) {
		arg, err := argAt[A](call, 0)
		if err != nil {
			return nil, err
		}
		r, err := impl(ctx, ac, call.Target, arg)
		return r, err
	})
}

// Call invokes the capability on target through c.
func (f TargetFn[A, R]) Call(ctx context.Context, c *apis.Context, target address.Address, arg A) (R, error) {
	out, err := c.Call(ctx, apis.Call{Capability: f.Capability, Target: target, Args: []any{arg}})
	return result[R](f.Capability, out, err)
}

// Pull is the capability of every PullFn.
const Pull signature.Capability = "core.pull"

// PullFn fetches metadata of type M about a target. The subject of its
// signatures is the subject tag of M, so pulls of different metadata types
// are distinct routes of the same capability.
type PullFn[M any] struct {
	Subject string
}

// NewPull returns the descriptor pulling M.
func NewPull[M any]() PullFn[M] {
	return PullFn[M]{Subject: signature.SubjectFor[M]()}
}

// Collect registers impl on c for pattern, usually a path pattern such as
// FromPath(vocab, "land.group", nil).
func (f PullFn[M]) Collect(c *collector.Collector, pattern address.Pattern, impl func(ctx context.Context, c *apis.Context, target address.Address) (M, error)) error {
	if impl == nil {
		return c.RegisterSubject(Pull, f.Subject, pattern, nil)
	}
	return c.RegisterSubject(Pull, f.Subject, pattern, func(ctx context.Context, ac *apis.Context, call apis.Call) (any, error) {
		m, err := impl(ctx, ac, call.Target)
		return m, err
	})
}

// Call pulls M about target through c.
func (f PullFn[M]) Call(ctx context.Context, c *apis.Context, target address.Address) (M, error) {
	out, err := c.Call(ctx, apis.Call{Capability: Pull, Subject: f.Subject, Target: target})
	return result[M](Pull, out, err)
}

// Fetch is the capability of every FetchFn.
const Fetch signature.Capability = "core.fetch"

// anyResource matches every address carrying a resource axis.
var anyResource = address.MustPattern(nil, address.Has(address.Resource))

// FetchFn loads the content of a resource as R. Its signatures carry the
// subject tag of R, so one adapter may fetch the same resource address
// into different types.
type FetchFn[R any] struct {
	Subject string
}

// NewFetch returns the descriptor fetching R.
func NewFetch[R any]() FetchFn[R] {
	return FetchFn[R]{Subject: signature.SubjectFor[R]()}
}

// Collect registers impl for every resource address.
func (f FetchFn[R]) Collect(c *collector.Collector, impl func(ctx context.Context, c *apis.Context, resource address.Address) (R, error)) error {
	return f.CollectOn(c, anyResource, impl)
}

// CollectOn registers impl for the resources matched by pattern, which
// must constrain the resource axis.
func (f FetchFn[R]) CollectOn(c *collector.Collector, pattern address.Pattern, impl func(ctx context.Context, c *apis.Context, resource address.Address) (R, error)) error {
	if !slices.ContainsFunc(pattern.Rules(), func(r address.Rule) bool { return r.Axis == address.Resource }) {
		return errors.NewConfigurationError("register", c.Name(),
			fmt.Errorf("%w: fetch pattern %s has no %s axis", errors.ErrMalformedPattern, pattern, address.Resource))
	}
	if impl == nil {
		return c.RegisterSubject(Fetch, f.Subject, pattern, nil)
	}
	return c.RegisterSubject(Fetch, f.Subject, pattern, func(ctx context.Context, ac *apis.Context, call apis.Call) (any, error) {
		r, err := impl(ctx, ac, call.Target)
		return r, err
	})
}

// Call fetches resource as R through c.
func (f FetchFn[R]) Call(ctx context.Context, c *apis.Context, resource address.Address) (R, error) {
	out, err := c.Call(ctx, apis.Call{Capability: Fetch, Subject: f.Subject, Target: resource})
	return result[R](Fetch, out, err)
}

// argAt returns call.Args[i] as A.
func argAt[A any](call apis.Call, i int) (A, error) {
	var zero A
	if i >= len(call.Args) {
		return zero, fmt.Errorf("%w: %s expects argument %d", errors.ErrInvalidArgument, call.Capability, i)
	}
	if call.Args[i] == nil {
		return zero, nil
	}
	a, ok := call.Args[i].(A)
	if !ok {
		return zero, fmt.Errorf("%w: %s argument %d is %T, want %T", errors.ErrInvalidArgument, call.Capability, i, call.Args[i], zero)
	}
	return a, nil
}

// result converts an untyped invocation result to R.
func result[R any](capability signature.Capability, out any, err error) (R, error) {
	var zero R
	if err != nil || out == nil {
		return zero, err
	}
	r, ok := out.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T, want %T", errors.ErrInvalidArgument, capability, out, zero)
	}
	return r, nil
}
