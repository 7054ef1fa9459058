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

	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/fn"
)

// Summary is the name and description of an entity.
type Summary struct {
	Name        string
	Description string
}

// Nick is how a member or friend appears in a scene.
type Nick struct {
	Name     string
	Nickname string
	Badge    string
}

// Count is the member count of a scene.
type Count struct {
	Current int
	Max     int
}

var (
	// PullSummary pulls Summary metadata.
	PullSummary = fn.NewPull[Summary]()
	// PullNick pulls Nick metadata.
	PullNick = fn.NewPull[Nick]()
	// PullCount pulls Count metadata.
	PullCount = fn.NewPull[Count]()
)

// Pull fetches metadata M about target.
func Pull[M any](ctx context.Context, c *apis.Context, target address.Address) (M, error) {
	return fn.NewPull[M]().Call(ctx, c, target)
}
