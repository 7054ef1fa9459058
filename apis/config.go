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

package apis

import (
	"strings"
	"sync"

	"dirpx.dev/capx/address"
)

// Config carries read-only routing knobs.
// It is passed by value and should be treated as immutable by implementations.
type Config struct {
	// StrictDuplicates rejects a second registration of the same signature
	// inside one collector instead of overriding the earlier entry.
	StrictDuplicates bool

	// Axes extends the default address vocabulary.
	Axes []address.Axis

	// MaxUnwrap limits how many pointers and interfaces the reflect
	// strategy follows to reach a tagged struct. Subject names are derived
	// when descriptors are declared, before any Config exists, and always
	// use the default depth.
	MaxUnwrap int

	// DisableReflect removes the struct-tag strategy from the default chain.
	DisableReflect bool

	// LogLevel is the level name used when the runtime builds its own logger.
	LogLevel string
}

var (
	defaultVocabulary = address.DefaultVocabulary()
	// vocabularies memoizes extended vocabularies by their joined axes.
	vocabularies sync.Map // key: string, val: *address.Vocabulary
)

// Vocabulary returns the address vocabulary implied by c. Configs with the
// same Axes share one vocabulary, which callers must not modify.
func (c Config) Vocabulary() *address.Vocabulary {
	if len(c.Axes) == 0 {
		return defaultVocabulary
	}
	var key strings.Builder
	for _, a := range c.Axes {
		key.WriteString(string(a))
		key.WriteByte(0)
	}
	if v, ok := vocabularies.Load(key.String()); ok {
		return v.(*address.Vocabulary)
	}
	v, _ := vocabularies.LoadOrStore(key.String(), defaultVocabulary.With(c.Axes...))
	return v.(*address.Vocabulary)
}
