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
	"sync"

	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/errors"
)

// Extractors is a reflection-free lookup of address extractors by
// argument type. It is safe for concurrent use.
type Extractors struct {
	// mu guards write-side consistency
	mu sync.Mutex
	// m maps reflect.Type to func(any) address.Address.
	m sync.Map
	// count tracks the number of registered extractors.
	count int
}

// NewExtractors returns an empty extractor registry.
func NewExtractors() *Extractors {
	return &Extractors{}
}

// RegisterExtractor associates fn with arguments of exact type T.
// A type can be registered once.
func RegisterExtractor[T any](e *Extractors, fn func(T) address.Address) error {
	if fn == nil {
		return fmt.Errorf("%w: nil extractor", errors.ErrInvalidArgument)
	}
	t := reflect.TypeFor[T]()

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.m.Load(t); ok {
		return fmt.Errorf("%w: extractor for %s already registered", errors.ErrInvalidArgument, t)
	}
	e.m.Store(t, func(v any) address.Address { return fn(v.(T)) })
	e.count++
	return nil
}

// Lookup returns the extractor for exact type t.
func (e *Extractors) Lookup(t reflect.Type) (func(any) address.Address, bool) {
	if t == nil {
		return nil, false
	}
	if v, ok := e.m.Load(t); ok {
		return v.(func(any) address.Address), true
	}
	return nil, false
}

// Len returns the number of registered extractors.
func (e *Extractors) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// NewExtractorStrategy creates an apis.Strategy that consults e.
func NewExtractorStrategy(e *Extractors) apis.Strategy {
	return &extractorStrategy{e: e}
}

// extractorStrategy consults registered extractors before falling back to reflection.
type extractorStrategy struct {
	e *Extractors
}

var _ apis.Strategy = (*extractorStrategy)(nil)

// TryDerive runs the extractor of the first argument with one.
func (s *extractorStrategy) TryDerive(call apis.Call, _ *apis.Context, _ apis.Config) (address.Address, bool) {
	if s.e == nil {
		return address.Address{}, false
	}
	for _, arg := range call.Args {
		if arg == nil {
			continue
		}
		fn, ok := s.e.Lookup(reflect.TypeOf(arg))
		if !ok {
			continue
		}
		if a := fn(arg); !a.IsZero() {
			return a, true
		}
	}
	return address.Address{}, false
}
