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

package address

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/multierr"

	"dirpx.dev/capx/errors"
)

type matcherKind uint8

const (
	wildcard matcherKind = iota
	literal
	predicate
)

// Matcher accepts or rejects the value of one axis.
// Predicates are identified by name: two predicates sharing a name are
// considered the same matcher when patterns are compared or keyed.
type Matcher struct {
	kind  matcherKind
	value string
	name  string
	fn    func(string) bool
}

// Any matches every value. It contributes nothing to specificity.
func Any() Matcher { return Matcher{kind: wildcard} }

// Literal matches exactly v.
func Literal(v string) Matcher { return Matcher{kind: literal, value: v} }

// Predicate matches values accepted by fn. name identifies the predicate in
// keys and diagnostics.
func Predicate(name string, fn func(string) bool) Matcher {
	return Matcher{kind: predicate, name: name, fn: fn}
}

// OneOf matches any of values.
func OneOf(values ...string) Matcher {
	set := slices.Clone(values)
	slices.Sort(set)
	set = slices.Compact(set)
	return Predicate("oneof("+strings.Join(set, "|")+")", func(v string) bool {
		_, found := slices.BinarySearch(set, v)
		return found
	})
}

// Bound reports whether the matcher constrains the value.
func (m Matcher) Bound() bool { return m.kind != wildcard }

// Accept reports whether v satisfies the matcher.
func (m Matcher) Accept(v string) bool {
	switch m.kind {
	case literal:
		return v == m.value
	case predicate:
		return m.fn(v)
	default:
		return true
	}
}

// String renders the matcher as it appears in a pattern key.
func (m Matcher) String() string {
	switch m.kind {
	case literal:
		return escape(m.value)
	case predicate:
		return "?" + m.name
	default:
		return "*"
	}
}

// Rule binds a Matcher to an axis.
type Rule struct {
	Axis    Axis
	Matcher Matcher
}

// On binds m to axis.
func On(axis Axis, m Matcher) Rule { return Rule{Axis: axis, Matcher: m} }

// Is binds a literal value to axis.
func Is(axis Axis, value string) Rule { return On(axis, Literal(value)) }

// Has requires axis to be present with any value.
func Has(axis Axis) Rule { return On(axis, Any()) }

// Where binds a named predicate to axis.
func Where(axis Axis, name string, fn func(string) bool) Rule {
	return On(axis, Predicate(name, fn))
}

// Pattern is an immutable address matcher.
type Pattern struct {
	rules       []Rule
	key         string
	specificity int
}

// NewPattern builds a Pattern over vocab (nil means DefaultVocabulary).
// Unknown axes, repeated axes, empty literals and nil predicates are
// configuration errors; all violations are reported together.
func NewPattern(vocab *Vocabulary, rules ...Rule) (Pattern, error) {
	var err error
	seen := make(map[Axis]struct{}, len(rules))
	for _, r := range rules {
		if !vocab.Has(r.Axis) {
			err = multierr.Append(err, fmt.Errorf("%w: %q", errors.ErrUnknownAxis, r.Axis))
		}
		if _, dup := seen[r.Axis]; dup {
			err = multierr.Append(err, fmt.Errorf("%w: %s", errors.ErrRepeatedAxis, r.Axis))
		}
		seen[r.Axis] = struct{}{}
		switch r.Matcher.kind {
		case literal:
			if r.Matcher.value == "" {
				err = multierr.Append(err, fmt.Errorf("%w: empty literal on %s", errors.ErrMalformedPattern, r.Axis))
			}
		case predicate:
			if r.Matcher.fn == nil || r.Matcher.name == "" {
				err = multierr.Append(err, fmt.Errorf("%w: predicate on %s needs a name and a function", errors.ErrMalformedPattern, r.Axis))
			}
		}
	}
	if err != nil {
		return Pattern{}, errors.NewConfigurationError("pattern", "", err)
	}

	p := Pattern{rules: slices.Clone(rules)}
	var b strings.Builder
	for i, r := range p.rules {
		if r.Matcher.Bound() {
			p.specificity++
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(string(r.Axis))
		b.WriteByte('(')
		b.WriteString(r.Matcher.String())
		b.WriteByte(')')
	}
	p.key = b.String()
	return p, nil
}

// MustPattern is like NewPattern but panics on error.
func MustPattern(vocab *Vocabulary, rules ...Rule) Pattern {
	p, err := NewPattern(vocab, rules...)
	if err != nil {
		panic(err)
	}
	return p
}

// Exact returns the all-literal pattern equal to a.
func Exact(vocab *Vocabulary, a Address) (Pattern, error) {
	rules := make([]Rule, 0, a.Len())
	for _, s := range a.segs {
		rules = append(rules, Is(s.Axis, s.Value))
	}
	return NewPattern(vocab, rules...)
}

// FromPath builds a pattern from a dotted axis path such as
// "land.group.member". Every axis is a wildcard unless overridden.
func FromPath(vocab *Vocabulary, path string, overrides map[Axis]Matcher) (Pattern, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		if len(overrides) > 0 {
			return Pattern{}, errors.NewConfigurationError("pattern", "",
				fmt.Errorf("%w: overrides given for an empty path", errors.ErrMalformedPattern))
		}
		return Pattern{}, nil
	}
	parts := strings.Split(path, ".")
	rules := make([]Rule, 0, len(parts))
	used := 0
	for _, part := range parts {
		axis := Axis(part)
		m, ok := overrides[axis]
		if ok {
			used++
		} else {
			m = Any()
		}
		rules = append(rules, On(axis, m))
	}
	if used != len(overrides) {
		return Pattern{}, errors.NewConfigurationError("pattern", "",
			fmt.Errorf("%w: override axis not in path %q", errors.ErrMalformedPattern, path))
	}
	return NewPattern(vocab, rules...)
}

// Match reports whether p matches a and, if so, the match specificity.
func (p Pattern) Match(a Address) (int, bool) {
	j := 0
	for _, r := range p.rules {
		for j < len(a.segs) && a.segs[j].Axis != r.Axis {
			j++
		}
		if j == len(a.segs) || !r.Matcher.Accept(a.segs[j].Value) {
			return 0, false
		}
		j++
	}
	return p.specificity, true
}

// Match is the functional form of p.Match(a).
func Match(p Pattern, a Address) (int, bool) { return p.Match(a) }

// Specificity returns the number of bound axes.
func (p Pattern) Specificity() int { return p.specificity }

// Len returns the number of axes in the pattern.
func (p Pattern) Len() int { return len(p.rules) }

// IsEmpty reports whether p is the empty, match-everything pattern.
func (p Pattern) IsEmpty() bool { return len(p.rules) == 0 }

// Rules returns a copy of the pattern rules.
func (p Pattern) Rules() []Rule { return slices.Clone(p.rules) }

// Key returns a comparable key, e.g. "land(qq).group(*).member(?admin)".
// The empty pattern has the key "".
func (p Pattern) Key() string { return p.key }

// String returns the key, rendering the empty pattern as "{*}".
func (p Pattern) String() string {
	if p.key == "" {
		return "{*}"
	}
	return p.key
}

// Disjoint reports whether p and q can be proven never to match the same
// address: a shared axis is bound to a literal the other side rejects, or
// two shared axes appear in opposite order. Two predicates on one axis
// are assumed to overlap.
func (p Pattern) Disjoint(q Pattern) bool {
	pos := make(map[Axis]int, len(q.rules))
	for i, o := range q.rules {
		pos[o.Axis] = i
	}
	last := -1
	for _, r := range p.rules {
		i, shared := pos[r.Axis]
		if !shared {
			continue
		}
		if i < last {
			return true
		}
		last = i
		if conflicts(r.Matcher, q.rules[i].Matcher) {
			return true
		}
	}
	return false
}

// Overlaps reports whether some address could be matched by both p and q.
func (p Pattern) Overlaps(q Pattern) bool { return !p.Disjoint(q) }

func conflicts(a, b Matcher) bool {
	switch {
	case a.kind == literal && b.kind != wildcard:
		return !b.Accept(a.value)
	case b.kind == literal && a.kind != wildcard:
		return !a.Accept(b.value)
	default:
		return false
	}
}
