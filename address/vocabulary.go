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

// Package address models structured identifiers of remote entities and the
// patterns used to match them.
//
// An Address is an ordered sequence of (axis, value) segments. Order encodes
// nesting: land(qq).group(7).member(42) is a member nested under a group nested
// under a land. No axis repeats within one Address. Addresses are immutable
// values; every method that "changes" an address returns a new one.
//
// A Pattern is an address-shaped matcher. Each pattern axis carries a literal,
// a wildcard or a named predicate. A pattern matches an address when every
// pattern axis occurs in the address, in the same relative order, and its
// matcher accepts the address value. The specificity of a match is the number
// of bound (literal or predicate) axes; wildcards contribute zero. The empty
// pattern matches every address with specificity zero.
package address

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Axis names one level of an address.
type Axis string

// Well-known axes.
const (
	Land     Axis = "land"
	Account  Axis = "account"
	Friend   Axis = "friend"
	Guild    Axis = "guild"
	Group    Axis = "group"
	Channel  Axis = "channel"
	Member   Axis = "member"
	Message  Axis = "message"
	Request  Axis = "request"
	Resource Axis = "resource"
)

// Vocabulary is the set of axes patterns may be built from.
type Vocabulary struct {
	axes mapset.Set[Axis]
}

// NewVocabulary returns a vocabulary made of axes.
func NewVocabulary(axes ...Axis) *Vocabulary {
	return &Vocabulary{axes: mapset.NewSet(axes...)}
}

// DefaultVocabulary returns a vocabulary holding the well-known axes.
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(Land, Account, Friend, Guild, Group, Channel, Member, Message, Request, Resource)
}

// With returns a copy of v extended with axes.
func (v *Vocabulary) With(axes ...Axis) *Vocabulary {
	if v == nil {
		v = DefaultVocabulary()
	}
	n := v.axes.Clone()
	n.Append(axes...)
	return &Vocabulary{axes: n}
}

// Has reports whether axis belongs to the vocabulary.
func (v *Vocabulary) Has(axis Axis) bool {
	if v == nil {
		return defaultVocabulary.axes.Contains(axis)
	}
	return v.axes.Contains(axis)
}

// Axes returns the vocabulary sorted by name.
func (v *Vocabulary) Axes() []Axis {
	if v == nil {
		v = defaultVocabulary
	}
	out := v.axes.ToSlice()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var defaultVocabulary = DefaultVocabulary()
