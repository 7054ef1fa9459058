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

// Package account keeps the active accounts of a runtime.
//
// The connection layer connects an account when its session comes up and
// disconnects it when the session ends; context construction only reads.
package account

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/atomic"

	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/errors"
	"dirpx.dev/capx/internal/xsync"
	"dirpx.dev/capx/log"
)

// Info describes one active account.
type Info struct {
	Route       address.Address
	Account     apis.Account
	Protocol    apis.Protocol
	Platform    string
	ConnectedAt time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l log.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// Registry maps account addresses to active accounts.
type Registry struct {
	accounts *xsync.Map[string, Info]
	logger   log.Logger
}

// NewRegistry returns an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		accounts: xsync.NewMap[string, Info](),
		logger:   log.DiscardLogger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect records info unless an account is already active at info.Route.
// It returns the active entry and whether info was stored.
func (r *Registry) Connect(info Info) (Info, bool, error) {
	if info.Route.IsZero() {
		return Info{}, false, fmt.Errorf("%w: account route is empty", errors.ErrInvalidArgument)
	}
	if info.Account == nil {
		return Info{}, false, fmt.Errorf("%w: nil account for %s", errors.ErrInvalidArgument, info.Route)
	}
	if info.Protocol == nil {
		info.Protocol = info.Account.Protocol()
	}
	if info.ConnectedAt.IsZero() {
		info.ConnectedAt = time.Now()
	}

	active, stored := r.accounts.SetIfAbsent(info.Route.Key(), info)
	if stored {
		r.logger.With("account", info.Route.String(), "platform", info.Platform).Info("account connected")
	}
	return active, stored, nil
}

// Disconnect removes the account at route and reports whether one was active.
func (r *Registry) Disconnect(route address.Address) (Info, bool) {
	info, ok := r.accounts.Delete(route.Key())
	if ok {
		r.logger.With("account", route.String()).Info("account disconnected")
	}
	return info, ok
}

// Get returns the account active at route.
func (r *Registry) Get(route address.Address) (Info, error) {
	info, ok := r.accounts.Get(route.Key())
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", errors.ErrAccountNotFound, route)
	}
	return info, nil
}

// Has reports whether an account is active at route.
func (r *Registry) Has(route address.Address) bool {
	_, ok := r.accounts.Get(route.Key())
	return ok
}

// Match returns the accounts whose route matches p, sorted by route.
func (r *Registry) Match(p address.Pattern) []Info {
	var out []Info
	r.accounts.Range(func(_ string, info Info) bool {
		if _, ok := p.Match(info.Route); ok {
			out = append(out, info)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Route.String() < out[j].Route.String() })
	return out
}

// Len returns the number of active accounts.
func (r *Registry) Len() int { return r.accounts.Len() }

// Reset disconnects every account.
func (r *Registry) Reset() { r.accounts.Reset() }

// Protocol is a minimal apis.Protocol for adapters without their own type.
type Protocol struct {
	name string
	land address.Address
}

var _ apis.Protocol = (*Protocol)(nil)

// NewProtocol returns a protocol named name serving land.
func NewProtocol(name, land string) *Protocol {
	return &Protocol{name: name, land: address.Must(address.Seg(address.Land, land))}
}

// Name implements apis.Protocol.
func (p *Protocol) Name() string { return p.name }

// Land implements apis.Protocol.
func (p *Protocol) Land() address.Address { return p.land }

// Base is a minimal apis.Account whose availability is toggled by the
// connection layer.
type Base struct {
	route     address.Address
	protocol  apis.Protocol
	available *atomic.Bool
}

var _ apis.Account = (*Base)(nil)

// NewBase returns an available account at route.
func NewBase(route address.Address, protocol apis.Protocol) *Base {
	return &Base{route: route, protocol: protocol, available: atomic.NewBool(true)}
}

// Route implements apis.Account.
func (b *Base) Route() address.Address { return b.route }

// Protocol implements apis.Account.
func (b *Base) Protocol() apis.Protocol { return b.protocol }

// Available implements apis.Account.
func (b *Base) Available() bool { return b.available.Load() }

// SetAvailable flips the account availability.
func (b *Base) SetAvailable(v bool) { b.available.Store(v) }
