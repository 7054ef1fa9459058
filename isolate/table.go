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

package isolate

import (
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/collector"
	"dirpx.dev/capx/signature"
)

// table is the immutable effective lookup table of one isolate layer.
// Published tables are never mutated.
type table struct {
	generation uint64
	routes     map[signature.Route][]apis.Candidate
	artifacts  map[signature.ArtifactKey]any
}

var emptyTable = &table{
	routes:    map[signature.Route][]apis.Candidate{},
	artifacts: map[signature.ArtifactKey]any{},
}

// build derives a table from applied, oldest first. The apply position
// becomes the candidate rank; later artifacts shadow earlier ones.
func build(applied []*collector.Collector) *table {
	t := &table{
		routes:    make(map[signature.Route][]apis.Candidate),
		artifacts: make(map[signature.ArtifactKey]any),
	}
	for rank, c := range applied {
		for _, e := range c.Entries() {
			r := e.Signature.Route()
			t.routes[r] = append(t.routes[r], apis.Candidate{Entry: e, Rank: rank})
		}
		for k, a := range c.Artifacts() {
			t.artifacts[k] = a
		}
	}
	return t
}
