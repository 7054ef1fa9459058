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
	"github.com/google/uuid"

	"dirpx.dev/capx/address"
	"dirpx.dev/capx/signature"
)

// Entry is one signature registered by a collector.
type Entry struct {
	Signature signature.Signature
	Pattern   address.Pattern
	Impl      Impl
	// Owner is the name of the contributing collector.
	Owner string
	// OwnerID is the identity of the contributing collector.
	OwnerID uuid.UUID
}

// Candidate is an entry as seen through a Table.
type Candidate struct {
	Entry
	// Layer is 0 for the innermost isolate and grows toward the root.
	Layer int
	// Rank is the apply position of the owner inside its layer.
	// Higher ranks were applied more recently.
	Rank int
}

// Selection is the outcome of a successful resolution.
type Selection struct {
	Candidate
	// Specificity is the number of bound pattern axes that matched.
	Specificity int
	// Address is the derived address the pattern matched.
	Address address.Address
}

// Table is a read-only snapshot of an effective lookup table.
// Implementations must be safe for concurrent use and must never expose
// a partially applied collector.
type Table interface {
	// Candidates returns every entry registered for route, across layers.
	Candidates(route signature.Route) []Candidate
	// Artifact returns the most relevant artifact registered under key.
	Artifact(key signature.ArtifactKey) (any, bool)
}
