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

package strategy

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
	uref "dirpx.dev/capx/utils/reflect"
)

// TagName is the struct tag read by the reflect strategy.
//
//	type MemberRef struct {
//		Land   string `capx:"land"`
//		Group  int64  `capx:"group"`
//		Member string `capx:"member,omitempty"`
//	}
//
// Tagged fields become address segments in declaration order. A field of
// type address.Address tagged "*" is used as the address prefix.
const TagName = "capx"

// NewReflectStrategy creates an apis.Strategy that derives addresses from
// tagged struct arguments, memoizing the field plan per type.
func NewReflectStrategy() apis.Strategy {
	return reflectStrategy{}
}

// reflectStrategy is the general fallback for plain data arguments.
type reflectStrategy struct{}

var _ apis.Strategy = reflectStrategy{}

// field is one tagged struct field.
type field struct {
	index     []int
	axis      address.Axis
	base      bool
	omitEmpty bool
}

// planCache caches field plans by struct type. A nil plan means the type
// has no tagged fields.
var planCache sync.Map // key: reflect.Type, val: []field

var addressType = reflect.TypeOf(address.Address{})

// TryDerive uses the first tagged struct argument that yields a valid address.
func (reflectStrategy) TryDerive(call apis.Call, _ *apis.Context, cfg apis.Config) (address.Address, bool) {
	if cfg.DisableReflect {
		return address.Address{}, false
	}
	vocab := cfg.Vocabulary()
	for _, arg := range call.Args {
		if arg == nil {
			continue
		}
		v, ok := uref.Indirect(reflect.ValueOf(arg), cfg.MaxUnwrap)
		if !ok {
			continue
		}
		fields := planOf(v.Type())
		if len(fields) == 0 {
			continue
		}
		if a, ok := derive(v, fields, vocab); ok {
			return a, true
		}
	}
	return address.Address{}, false
}

// planOf returns the memoized field plan of struct type t.
func planOf(t reflect.Type) []field {
	if v, ok := planCache.Load(t); ok {
		return v.([]field)
	}

	var fields []field
	for _, sf := range reflect.VisibleFields(t) {
		tag, ok := sf.Tag.Lookup(TagName)
		if !ok || tag == "-" || !sf.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		f := field{index: sf.Index, omitEmpty: opts == "omitempty"}
		switch {
		case name == "*" && sf.Type == addressType:
			f.base = true
		case name == "" || name == "*":
			continue
		default:
			f.axis = address.Axis(name)
		}
		fields = append(fields, f)
	}

	planCache.Store(t, fields)
	return fields
}

// derive builds the address described by fields from struct value v.
func derive(v reflect.Value, fields []field, vocab *address.Vocabulary) (address.Address, bool) {
	var (
		out address.Address
		err error
	)
	for _, f := range fields {
		fv, ferr := v.FieldByIndexErr(f.index)
		if ferr != nil {
			return address.Address{}, false
		}
		if f.base {
			base := fv.Interface().(address.Address)
			if !out.IsZero() {
				return address.Address{}, false
			}
			out = base
			continue
		}
		if !vocab.Has(f.axis) {
			return address.Address{}, false
		}
		s, ok := format(fv)
		if !ok {
			return address.Address{}, false
		}
		if s == "" {
			if f.omitEmpty {
				continue
			}
			return address.Address{}, false
		}
		if out, err = out.Append(f.axis, s); err != nil {
			return address.Address{}, false
		}
	}
	return out, !out.IsZero()
}

// format renders a field value as an address segment value.
func format(v reflect.Value) (string, bool) {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "", true
		}
		v = v.Elem()
	}
	if v.CanInterface() {
		if s, ok := v.Interface().(fmt.Stringer); ok {
			return s.String(), true
		}
	}
	switch v.Kind() {
	case reflect.String:
		return v.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), true
	default:
		return "", false
	}
}
