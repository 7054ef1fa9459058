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
	"strings"

	"dirpx.dev/capx/errors"
)

// Segment is one (axis, value) pair of an Address.
type Segment struct {
	Axis  Axis
	Value string
}

// Seg builds a Segment.
func Seg(axis Axis, value string) Segment {
	return Segment{Axis: axis, Value: value}
}

// Address is an immutable, ordered structured identifier.
// The zero value is the empty (root) address.
type Address struct {
	segs []Segment
}

// New builds an Address from segments, rejecting empty axes or values and
// repeated axes.
func New(segs ...Segment) (Address, error) {
	out := make([]Segment, 0, len(segs))
	for _, s := range segs {
		if err := checkSegment(out, s); err != nil {
			return Address{}, err
		}
		out = append(out, s)
	}
	return Address{segs: out}, nil
}

// Must is like New but panics on error. It is meant for addresses written
// as literals in code.
func Must(segs ...Segment) Address {
	a, err := New(segs...)
	if err != nil {
		panic(err)
	}
	return a
}

// Append returns a copy of a extended with (axis, value).
func (a Address) Append(axis Axis, value string) (Address, error) {
	s := Seg(axis, value)
	if err := checkSegment(a.segs, s); err != nil {
		return Address{}, err
	}
	out := make([]Segment, len(a.segs), len(a.segs)+1)
	copy(out, a.segs)
	return Address{segs: append(out, s)}, nil
}

// MustAppend is like Append but panics on error.
func (a Address) MustAppend(axis Axis, value string) Address {
	n, err := a.Append(axis, value)
	if err != nil {
		panic(err)
	}
	return n
}

// Len returns the number of segments.
func (a Address) Len() int { return len(a.segs) }

// IsZero reports whether a is the empty address.
func (a Address) IsZero() bool { return len(a.segs) == 0 }

// Segments returns a copy of the segments.
func (a Address) Segments() []Segment {
	out := make([]Segment, len(a.segs))
	copy(out, a.segs)
	return out
}

// Segment returns the i-th segment.
func (a Address) Segment(i int) Segment { return a.segs[i] }

// Get returns the value bound to axis.
func (a Address) Get(axis Axis) (string, bool) {
	for _, s := range a.segs {
		if s.Axis == axis {
			return s.Value, true
		}
	}
	return "", false
}

// Last returns the innermost segment.
func (a Address) Last() (Segment, bool) {
	if len(a.segs) == 0 {
		return Segment{}, false
	}
	return a.segs[len(a.segs)-1], true
}

// Parent returns a without its innermost segment. The parent of the root is the root.
func (a Address) Parent() Address {
	if len(a.segs) <= 1 {
		return Address{}
	}
	return Address{segs: a.segs[:len(a.segs)-1 : len(a.segs)-1]}
}

// Path returns the dotted axis sequence, e.g. "land.group.member".
func (a Address) Path() string {
	axes := make([]string, len(a.segs))
	for i, s := range a.segs {
		axes[i] = string(s.Axis)
	}
	return strings.Join(axes, ".")
}

// Equal reports structural equality.
func (a Address) Equal(b Address) bool {
	if len(a.segs) != len(b.segs) {
		return false
	}
	for i := range a.segs {
		if a.segs[i] != b.segs[i] {
			return false
		}
	}
	return true
}

// Contains reports whether child nests strictly under a.
func (a Address) Contains(child Address) bool {
	return Contains(a, child)
}

// Contains reports whether child's segments extend parent's segments with
// one or more further segments while keeping parent's prefix identical.
func Contains(parent, child Address) bool {
	if len(child.segs) <= len(parent.segs) {
		return false
	}
	for i, s := range parent.segs {
		if child.segs[i] != s {
			return false
		}
	}
	return true
}

// String returns the canonical text form, e.g. "land(qq).group(7)".
// The root address renders as "{}". Parentheses and backslashes inside
// values are escaped so that the form round-trips through Parse.
func (a Address) String() string {
	if len(a.segs) == 0 {
		return "{}"
	}
	var b strings.Builder
	for i, s := range a.segs {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(string(s.Axis))
		b.WriteByte('(')
		b.WriteString(escape(s.Value))
		b.WriteByte(')')
	}
	return b.String()
}

// Key returns a comparable key unique to the address.
func (a Address) Key() string { return a.String() }

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Parse parses the canonical text form produced by String.
func Parse(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "{}" {
		return Address{}, nil
	}
	var segs []Segment
	i := 0
	for i < len(s) {
		open := strings.IndexByte(s[i:], '(')
		if open <= 0 {
			return Address{}, fmt.Errorf("%w: %q: missing axis at offset %d", errors.ErrMalformedAddress, s, i)
		}
		axis := Axis(s[i : i+open])
		i += open + 1

		var value strings.Builder
		closed := false
		for i < len(s) {
			c := s[i]
			if c == '\\' && i+1 < len(s) {
				value.WriteByte(s[i+1])
				i += 2
				continue
			}
			i++
			if c == ')' {
				closed = true
				break
			}
			value.WriteByte(c)
		}
		if !closed {
			return Address{}, fmt.Errorf("%w: %q: unterminated value of %s", errors.ErrMalformedAddress, s, axis)
		}
		segs = append(segs, Seg(axis, value.String()))

		if i < len(s) {
			if s[i] != '.' {
				return Address{}, fmt.Errorf("%w: %q: expected '.' at offset %d", errors.ErrMalformedAddress, s, i)
			}
			i++
			if i == len(s) {
				return Address{}, fmt.Errorf("%w: %q: trailing '.'", errors.ErrMalformedAddress, s)
			}
		}
	}
	return New(segs...)
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func checkSegment(prev []Segment, s Segment) error {
	if s.Axis == "" || strings.ContainsAny(string(s.Axis), `.()\ `) {
		return fmt.Errorf("%w: invalid axis %q", errors.ErrMalformedAddress, s.Axis)
	}
	if s.Value == "" {
		return fmt.Errorf("%w: %s", errors.ErrEmptyValue, s.Axis)
	}
	for _, p := range prev {
		if p.Axis == s.Axis {
			return fmt.Errorf("%w: %s", errors.ErrRepeatedAxis, s.Axis)
		}
	}
	return nil
}

var escaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

func escape(v string) string {
	if !strings.ContainsAny(v, `\()`) {
		return v
	}
	return escaper.Replace(v)
}
