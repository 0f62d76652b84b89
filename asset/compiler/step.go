// Copyright 2024 The assetforge Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compiler

import (
	"github.com/assetforge/assetforge/asset"
	"github.com/assetforge/assetforge/builder"
)

// AssetBuildStep is the compilation step of one asset: a sequential
// list of the commands its compiler planned, carrying the asset item
// so results can be traced back. Its output group collects every
// binding the asset's commands produce.
type AssetBuildStep struct {
	*builder.ListBuildStep

	// Item is the asset this step compiles.
	Item *asset.Item
}

var _ builder.BuildStep = (*AssetBuildStep)(nil)

// NewAssetBuildStep returns an empty step for item.
func NewAssetBuildStep(item *asset.Item) *AssetBuildStep {
	return &AssetBuildStep{
		ListBuildStep: builder.NewListBuildStep(item.String(), builder.Sequential),
		Item:          item,
	}
}
