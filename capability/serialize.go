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

package capability

import (
	"context"
	"fmt"
	"reflect"

	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/collector"
	"dirpx.dev/capx/errors"
	"dirpx.dev/capx/signature"
)

// SerializeKind is the artifact kind of message serializers.
const SerializeKind = "message.serialize"

// Serializer translates one element to its wire form.
type Serializer func(ctx context.Context, c *apis.Context, e Element) (any, error)

// SerializerKey returns the artifact key of the serializer of E.
func SerializerKey[E any]() signature.ArtifactKey {
	return signature.ArtifactKey{Kind: SerializeKind, Name: signature.SubjectFor[E]()}
}

// CollectSerializer registers the serializer of element type E on col.
func CollectSerializer[E any](col *collector.Collector, serialize func(ctx context.Context, c *apis.Context, e E) (any, error)) error {
	if serialize == nil {
		return errors.NewConfigurationError("register", col.Name(), errors.ErrNilImplementation)
	}
	return col.RegisterArtifact(SerializerKey[E](), Serializer(func(ctx context.Context, c *apis.Context, e Element) (any, error) {
		v, ok := elementAs[E](e)
		if !ok {
			return nil, fmt.Errorf("%w: serializer of %s got %T", errors.ErrInvalidArgument, SerializerKey[E]().Name, e)
		}
		return serialize(ctx, c, v)
	}))
}

// elementAs converts e to E. Serializers are keyed by the pointer-free
// subject, so a *T element reaches the serializer of T and a T element the
// serializer of *T. A nil pointer converts to nothing.
func elementAs[E any](e Element) (E, bool) {
	if v, ok := e.(E); ok {
		return v, true
	}
	var zero E
	rv := reflect.ValueOf(e)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return zero, false
		}
		rv = rv.Elem()
		if v, ok := rv.Interface().(E); ok {
			return v, true
		}
	}
	if want := reflect.TypeFor[E](); rv.IsValid() && want.Kind() == reflect.Pointer && want.Elem() == rv.Type() {
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		return p.Interface().(E), true
	}
	return zero, false
}

// Serialize translates every element of content with the serializers
// visible to c. An element without a serializer is a not-found error.
func Serialize(ctx context.Context, c *apis.Context, content Chain) ([]any, error) {
	out := make([]any, 0, len(content))
	for _, e := range content {
		key := signature.ArtifactKey{Kind: SerializeKind, Name: signature.SubjectOf(e)}
		a, ok := c.Artifact(key)
		if !ok {
			return nil, &errors.NotFoundError{Capability: SerializeKind, Subject: key.Name, Address: c.Land().String()}
		}
		s, ok := a.(Serializer)
		if !ok {
			return nil, fmt.Errorf("%w: artifact %s is %T", errors.ErrInvalidArgument, key, a)
		}
		v, err := s(ctx, c, e)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
