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

package capx

import (
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/config"
)

// Config returns the routing configuration.
func (r *Runtime) Config() apis.Config {
	return r.st.Load().cfg
}

// SetConfig validates cfg, installs it and rebuilds the resolver unless
// it is pinned. Collectors created afterwards follow the new policy;
// collectors already built keep theirs.
func (r *Runtime) SetConfig(cfg apis.Config) error {
	if err := config.Validate(cfg); err != nil {
		return err
	}

	r.buildMu.Lock()
	defer r.buildMu.Unlock()

	old := r.st.Load()
	nres := old.res
	if !old.pres {
		nres = old.bld.BuildResolver(cfg, old.res, old.ext)
	}
	if nres == nil {
		return ErrNilResolver
	}

	r.st.Store(&state{cfg: cfg, ext: old.ext, res: nres, bld: old.bld, pres: old.pres})
	return nil
}

// Resolver returns the current resolver.
func (r *Runtime) Resolver() apis.Resolver {
	return r.st.Load().res
}

// SetResolver installs res and pins it, so later configuration or builder
// changes keep it. A nil res is ignored.
func (r *Runtime) SetResolver(res apis.Resolver) {
	if res == nil {
		return
	}

	r.buildMu.Lock()
	defer r.buildMu.Unlock()

	old := r.st.Load()
	r.st.Store(&state{cfg: old.cfg, ext: old.ext, res: res, bld: old.bld, pres: true})
}

// Builder returns the current builder.
func (r *Runtime) Builder() apis.Builder {
	return r.st.Load().bld
}

// SetBuilder installs b and rebuilds the resolver unless it is pinned.
func (r *Runtime) SetBuilder(b apis.Builder) error {
	if b == nil {
		return ErrNilBuilder
	}

	r.buildMu.Lock()
	defer r.buildMu.Unlock()

	old := r.st.Load()
	nres := old.res
	if !old.pres {
		nres = b.BuildResolver(old.cfg, old.res, old.ext)
	}
	if nres == nil {
		return ErrNilResolver
	}

	r.st.Store(&state{cfg: old.cfg, ext: old.ext, res: nres, bld: b, pres: old.pres})
	return nil
}

// SetExt replaces the builder extension value and rebuilds the resolver
// unless it is pinned.
func SetExt[T any](r *Runtime, ext T) error {
	r.buildMu.Lock()
	defer r.buildMu.Unlock()

	old := r.st.Load()
	nres := old.res
	if !old.pres {
		nres = old.bld.BuildResolver(old.cfg, old.res, ext)
	}
	if nres == nil {
		return ErrNilResolver
	}

	r.st.Store(&state{cfg: old.cfg, ext: ext, res: nres, bld: old.bld, pres: old.pres})
	return nil
}

// ExtAs returns the builder extension value as type T.
func ExtAs[T any](r *Runtime) (T, bool) {
	ext, ok := r.st.Load().ext.(T)
	return ext, ok
}

// IsResolverPinned reports whether the resolver survives rebuilds.
func (r *Runtime) IsResolverPinned() bool {
	return r.st.Load().pres
}

// PinResolver keeps the current resolver across rebuilds.
func (r *Runtime) PinResolver() {
	r.setPinned(true)
}

// UnpinResolver lets the next rebuild replace the resolver.
func (r *Runtime) UnpinResolver() {
	r.setPinned(false)
}

func (r *Runtime) setPinned(pinned bool) {
	r.buildMu.Lock()
	defer r.buildMu.Unlock()

	old := r.st.Load()
	r.st.Store(&state{cfg: old.cfg, ext: old.ext, res: old.res, bld: old.bld, pres: pinned})
}
