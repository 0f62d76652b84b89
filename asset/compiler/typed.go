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
	"context"
	"os"

	"github.com/assetforge/assetforge/asset"
)

// Typed adapts a compile func over a concrete asset type into an
// AssetCompiler. Before delegating it checks the asset value's type and
// that every declared source file exists on disk; a violation becomes a
// per-asset planning error and CompileFunc is not called.
type Typed[T asset.Asset] struct {
	// CompileFunc plans the steps for one asset of type T.
	CompileFunc func(ctx context.Context, cc *CompileContext, item *asset.Item, value T) *Result

	// Inputs is the compiler's declared input type table.
	Inputs []InputType
}

var _ AssetCompiler = (*Typed[asset.Asset])(nil)

// Compile implements AssetCompiler.
func (c *Typed[T]) Compile(ctx context.Context, cc *CompileContext, item *asset.Item) *Result {
	res := &Result{}
	value, ok := item.Asset.(T)
	if !ok {
		res.Errorf(item, "asset value has type %T, not the compiled type", item.Asset)
		return res
	}
	for _, src := range item.SourceFiles() {
		if _, err := os.Stat(src); err != nil {
			res.Errorf(item, "source file %q: %s", src, err)
		}
	}
	if res.HasErrors() {
		return res
	}
	return c.CompileFunc(ctx, cc, item, value)
}

// BuildDependencies implements AssetCompiler. Dependency steps are
// normally derived from Inputs by the dependency manager.
func (c *Typed[T]) BuildDependencies(ctx context.Context, cc *CompileContext, item *asset.Item) []*AssetBuildStep {
	return nil
}

// InputTypes implements AssetCompiler.
func (c *Typed[T]) InputTypes(item *asset.Item) []InputType {
	return c.Inputs
}
