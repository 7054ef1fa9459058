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

// Package signature defines the routing keys of capx.
//
// A Signature names one abstract capability invocation: a capability
// identifier, an optional subject-type tag and the key of the Pattern the
// implementation was registered for. Signatures are comparable and are used
// as map keys; two signatures with structurally equal patterns are still
// distinct keys when their capabilities differ.
package signature

import (
	"dirpx.dev/capx/address"
)

// Capability identifies an abstract operation, e.g. "message.send".
type Capability string

// Route is the part of a signature known at call time, before matching.
type Route struct {
	Capability Capability
	Subject    string
}

// String renders the route as "capability" or "capability[subject]".
func (r Route) String() string {
	if r.Subject == "" {
		return string(r.Capability)
	}
	return string(r.Capability) + "[" + r.Subject + "]"
}

// Signature is an immutable routing key.
type Signature struct {
	Capability Capability
	Subject    string
	Pattern    string
}

// Of builds the signature of capability c over pattern p.
func Of(c Capability, p address.Pattern) Signature {
	return Signature{Capability: c, Pattern: p.Key()}
}

// WithSubject returns a copy of s carrying the subject tag.
func (s Signature) WithSubject(subject string) Signature {
	s.Subject = subject
	return s
}

// Route returns the capability/subject part of s.
func (s Signature) Route() Route {
	return Route{Capability: s.Capability, Subject: s.Subject}
}

// String renders s as "capability[subject]@pattern".
func (s Signature) String() string {
	p := s.Pattern
	if p == "" {
		p = "{*}"
	}
	return s.Route().String() + "@" + p
}

// ArtifactKey identifies a non-capability extension point owned by a
// collector, such as an event parser for one raw event type.
type ArtifactKey struct {
	Kind string
	Name string
}

// String renders the key as "kind:name".
func (k ArtifactKey) String() string {
	return k.Kind + ":" + k.Name
}
