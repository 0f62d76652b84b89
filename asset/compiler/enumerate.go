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

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/logging"

	"github.com/assetforge/assetforge/asset"
)

// Enumerator produces the set of asset items a package's build must
// compile: declared roots of the package and of its dependency closure,
// plus every instance of an always-root asset type in those packages.
//
// The yielded collection is a set. Callers must not rely on its order.
type Enumerator struct {
	Session  *asset.PackageSession
	Registry *Registry
}

// Enumerate returns the root set for building pkg, or nil when the
// session integrity analysis reports errors: building against a broken
// session would produce a partial result that looks complete.
func (e *Enumerator) Enumerate(ctx context.Context, pkg *asset.Package) []*asset.Item {
	if res := e.Session.Analyze(); res.HasErrors() {
		for _, err := range res.Errors {
			logging.Warningf(ctx, "session analysis: %s", err)
		}
		logging.Warningf(ctx, "session analysis failed, not enumerating any assets")
		return nil
	}

	visited := stringset.New(len(e.Session.Packages()))
	items := map[asset.Id]*asset.Item{}
	e.collect(ctx, pkg, visited, items)

	out := make([]*asset.Item, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

func (e *Enumerator) collect(ctx context.Context, pkg *asset.Package, visited stringset.Set, items map[asset.Id]*asset.Item) {
	if pkg == nil || !visited.Add(pkg.Meta.Name) {
		return
	}

	for _, ref := range pkg.RootAssets {
		item := pkg.ResolveRoot(ref)
		if item == nil {
			item = e.Session.ResolveReference(ref)
		}
		if item == nil {
			// Analyze accepted the session, so this cannot happen unless
			// the session was mutated since; skip rather than guess.
			logging.Warningf(ctx, "package %q: root %s (%q) vanished since analysis", pkg.Meta.Name, ref.Id, ref.Location)
			continue
		}
		items[item.Id] = item
	}

	if e.Registry != nil {
		for _, item := range pkg.Assets() {
			if e.Registry.IsAlwaysRoot(item.Asset) {
				items[item.Id] = item
			}
		}
	}

	for _, dep := range pkg.Dependencies {
		e.collect(ctx, e.Session.Package(dep.Name), visited, items)
	}
	for _, local := range pkg.LocalDependencies {
		e.collect(ctx, local, visited, items)
	}
}
