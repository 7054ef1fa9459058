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

// Package resolver selects the implementation serving a call.
//
// Selection over the candidates whose pattern matches the derived address:
//
//  1. highest specificity wins;
//  2. on a tie, an entry of an inner isolate wins over its parents;
//  3. on a tie in one isolate, the most recently applied collector wins;
//  4. a remaining tie comes from a single collector and is reported as a
//     configuration error instead of being picked silently.
package resolver

import (
	"fmt"

	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/errors"
)

// New constructs an apis.Resolver that derives addresses with the given
// strategies, in order. Nil strategies are ignored. The returned resolver
// is safe for concurrent use provided strategies themselves are.
func New(strategies ...apis.Strategy) apis.Resolver {
	out := make([]apis.Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			out = append(out, s)
		}
	}
	return chain{strats: out}
}

// chain is an immutable, order-preserving resolver over a set of strategies.
type chain struct {
	strats []apis.Strategy
}

// Derive runs strategies in order until one derives an address.
// A call nobody can place resolves against the empty address, which only
// the empty pattern matches.
func (r chain) Derive(call apis.Call, c *apis.Context, cfg apis.Config) address.Address {
	for _, s := range r.strats {
		if a, ok := s.TryDerive(call, c, cfg); ok {
			return a
		}
	}
	return address.Address{}
}

// Resolve derives the call address and selects among table's candidates.
func (r chain) Resolve(table apis.Table, call apis.Call, c *apis.Context, cfg apis.Config) (apis.Selection, error) {
	addr := r.Derive(call, c, cfg)
	if table == nil {
		return apis.Selection{}, notFound(call, addr)
	}
	return Select(table.Candidates(call.Route()), call, addr)
}

// Select picks the best candidate matching addr.
func Select(cands []apis.Candidate, call apis.Call, addr address.Address) (apis.Selection, error) {
	var (
		best  apis.Selection
		found bool
		tie   *apis.Candidate
	)
	for i := range cands {
		cand := cands[i]
		spec, ok := cand.Pattern.Match(addr)
		if !ok {
			continue
		}
		if !found {
			best = apis.Selection{Candidate: cand, Specificity: spec, Address: addr}
			found = true
			continue
		}
		switch compare(spec, cand, best) {
		case 1:
			best = apis.Selection{Candidate: cand, Specificity: spec, Address: addr}
			tie = nil
		case 0:
			tie = &cands[i]
		}
	}

	if !found {
		return apis.Selection{}, notFound(call, addr)
	}
	if tie != nil {
		return apis.Selection{}, errors.NewConfigurationError("resolve", best.Owner,
			fmt.Errorf("%w: %s and %s both match %s", errors.ErrAmbiguousSignature,
				best.Signature, tie.Signature, addr))
	}
	return best, nil
}

// compare orders a matching candidate against the current best:
// 1 if it is better, -1 if worse, 0 on an unresolvable tie.
func compare(spec int, cand apis.Candidate, best apis.Selection) int {
	switch {
	case spec != best.Specificity:
		return sign(spec - best.Specificity)
	case cand.Layer != best.Layer:
		return sign(best.Layer - cand.Layer)
	case cand.Rank != best.Rank:
		return sign(cand.Rank - best.Rank)
	default:
		return 0
	}
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

func notFound(call apis.Call, addr address.Address) error {
	return &errors.NotFoundError{
		Capability: string(call.Capability),
		Subject:    call.Subject,
		Address:    addr.String(),
	}
}
