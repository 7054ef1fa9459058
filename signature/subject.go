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

package signature

import (
	"path"
	"reflect"
	"strings"
	"sync"

	uref "dirpx.dev/capx/utils/reflect"
)

// Subjecter lets a value choose its own subject tag.
type Subjecter interface {
	SubjectName() string
}

type subjectKey struct {
	t         reflect.Type
	maxUnwrap int
}

// subjectCache memoizes derived names by (type, maxUnwrap).
var subjectCache sync.Map // key: subjectKey, val: string

// SubjectOf returns the subject tag of v: v.SubjectName() when v implements
// Subjecter, otherwise the "pkg.Type" name of the nearest named type.
func SubjectOf(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(Subjecter); ok {
		return s.SubjectName()
	}
	return SubjectOfType(reflect.TypeOf(v), 0)
}

// SubjectFor returns the subject tag of the type parameter T.
func SubjectFor[T any]() string {
	var zero T
	if s, ok := any(zero).(Subjecter); ok {
		return s.SubjectName()
	}
	return SubjectOfType(reflect.TypeFor[T](), 0)
}

// SubjectOfType derives "pkg.Type" for t after unwrapping containers up to
// maxUnwrap levels (0 selects the default depth). Builtin and anonymous types
// yield "".
func SubjectOfType(t reflect.Type, maxUnwrap int) string {
	if t == nil {
		return ""
	}
	key := subjectKey{t: t, maxUnwrap: maxUnwrap}
	if v, ok := subjectCache.Load(key); ok {
		return v.(string)
	}

	name := ""
	if base, err := uref.Normalize(t, maxUnwrap); err == nil && base.PkgPath() != "" {
		name = path.Base(base.PkgPath()) + "." + stripTypeParams(base.Name())
	}
	subjectCache.Store(key, name)
	return name
}

// stripTypeParams removes generic instantiation suffixes: "T[int]" -> "T".
func stripTypeParams(s string) string {
	if i := strings.IndexByte(s, '['); i >= 0 {
		return s[:i]
	}
	return s
}
