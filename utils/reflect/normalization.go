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

// Package reflect holds the reflection helpers shared by subject naming and
// the struct-tag key derivation strategy.
package reflect

import (
	"errors"
	"reflect"
)

// DefaultMaxUnwrap bounds container unwrapping when callers pass 0.
const DefaultMaxUnwrap = 8

var (
	// ErrReflectNilType is returned when a nil reflect.Type is provided.
	ErrReflectNilType = errors.New("reflect: nil reflect.Type provided")
	// ErrReflectTypeNotNamed indicates that the provided type (after unwrapping
	// containers) does not contain a named type.
	ErrReflectTypeNotNamed = errors.New("reflect: type has no name")
)

// Normalize unwraps containers and returns the nearest named inner type.
//
// Unwrapping policy:
//   - ptr/slice/array/chan -> Elem()
//   - map[K]V: V when named, else K when named, else keep unwrapping V.
//   - default: t when named, otherwise ErrReflectTypeNotNamed.
//
// maxUnwrap <= 0 selects DefaultMaxUnwrap.
func Normalize(t reflect.Type, maxUnwrap int) (reflect.Type, error) {
	if t == nil {
		return nil, ErrReflectNilType
	}
	if maxUnwrap <= 0 {
		maxUnwrap = DefaultMaxUnwrap
	}

	for i := 0; t != nil && i < maxUnwrap; i++ {
		switch t.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Array, reflect.Chan:
			t = t.Elem()

		case reflect.Map:
			if et := t.Elem(); et.Name() != "" {
				return et, nil
			}
			if kt := t.Key(); kt.Name() != "" {
				return kt, nil
			}
			t = t.Elem()

		default:
			if t.Name() != "" {
				return t, nil
			}
			return nil, ErrReflectTypeNotNamed
		}
	}

	if t != nil && t.Name() != "" && t.Kind() != reflect.Ptr {
		return t, nil
	}
	return nil, ErrReflectTypeNotNamed
}

// Indirect follows pointers and interfaces of v up to maxUnwrap levels and
// reports whether a non-nil struct value was reached.
func Indirect(v reflect.Value, maxUnwrap int) (reflect.Value, bool) {
	if maxUnwrap <= 0 {
		maxUnwrap = DefaultMaxUnwrap
	}
	for i := 0; i < maxUnwrap && v.IsValid(); i++ {
		switch v.Kind() {
		case reflect.Ptr, reflect.Interface:
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		case reflect.Struct:
			return v, true
		default:
			return reflect.Value{}, false
		}
	}
	if v.IsValid() && v.Kind() == reflect.Struct {
		return v, true
	}
	return reflect.Value{}, false
}
