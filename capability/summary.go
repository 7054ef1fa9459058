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

var (
	// SummarySetName renames the target entity.
	SummarySetName = fn.NewTarget[string, None]("summary.set_name")
	// SummaryUnsetName restores the default name of the target entity.
	SummaryUnsetName = fn.NewTarget[None, None]("summary.unset_name")
	// SummarySetDescription sets the description of the target entity.
	SummarySetDescription = fn.NewTarget[string, None]("summary.set_description")
	// SummaryUnsetDescription clears the description of the target entity.
	SummaryUnsetDescription = fn.NewTarget[None, None]("summary.unset_description")
)

// SetName renames target.
func SetName(ctx context.Context, c *apis.Context, target address.Address, name string) error {
	_, err := SummarySetName.Call(ctx, c, target, name)
	return err
}

// UnsetName restores the default name of target.
func UnsetName(ctx context.Context, c *apis.Context, target address.Address) error {
	_, err := SummaryUnsetName.Call(ctx, c, target, None{})
	return err
}

// SetDescription sets the description of target.
func SetDescription(ctx context.Context, c *apis.Context, target address.Address, description string) error {
	_, err := SummarySetDescription.Call(ctx, c, target, description)
	return err
}

// UnsetDescription clears the description of target.
func UnsetDescription(ctx context.Context, c *apis.Context, target address.Address) error {
	_, err := SummaryUnsetDescription.Call(ctx, c, target, None{})
	return err
}
