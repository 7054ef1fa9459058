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

package builder

import (
	"slices"

	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/resolver"
	"dirpx.dev/capx/strategy"
)

// Option configures the builder.
type Option func(*builder)

// WithExtractors adds the extractor strategy backed by e to built resolvers.
func WithExtractors(e *strategy.Extractors) Option {
	return func(b *builder) { b.extractors = e }
}

// WithStrategies adds custom strategies, consulted after the built-in
// argument strategies and before the perspective fallback.
func WithStrategies(s ...apis.Strategy) Option {
	return func(b *builder) { b.custom = append(b.custom, s...) }
}

// New creates and returns a new instance of an apis.Builder.
func New(opts ...Option) apis.Builder {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// builder assembles the default strategy chain.
type builder struct {
	extractors *strategy.Extractors
	custom     []apis.Strategy
}

// BuildResolver builds a resolver whose chain is
// target -> addressable -> extractors -> reflect -> custom -> perspective.
// An ext of type *strategy.Extractors replaces the configured extractors.
// The reflect strategy is left out when cfg.DisableReflect is set.
func (b *builder) BuildResolver(cfg apis.Config, _ apis.Resolver, ext any) apis.Resolver {
	extractors := b.extractors
	if e, ok := ext.(*strategy.Extractors); ok && e != nil {
		extractors = e
	}

	chain := []apis.Strategy{
		strategy.NewTargetStrategy(),
		strategy.NewAddressableStrategy(),
	}
	if extractors != nil {
		chain = append(chain, strategy.NewExtractorStrategy(extractors))
	}
	if !cfg.DisableReflect {
		chain = append(chain, strategy.NewReflectStrategy())
	}
	chain = append(chain, slices.Clone(b.custom)...)
	chain = append(chain, strategy.NewPerspectiveStrategy())
	return resolver.New(chain...)
}
