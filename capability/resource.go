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

// Blob is the raw content of a resource such as an image or a file.
type Blob struct {
	Data      []byte
	MediaType string
}

// FetchBlob loads the raw content of a resource.
var FetchBlob = fn.NewFetch[Blob]()

// Fetch loads resource as R.
func Fetch[R any](ctx context.Context, c *apis.Context, resource address.Address) (R, error) {
	return fn.NewFetch[R]().Call(ctx, c, resource)
}
