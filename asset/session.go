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

package asset

import (
	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
)

// PackageSession owns every package loaded for one editing/build
// session and answers cross-package asset queries.
type PackageSession struct {
	packages map[string]*Package
	order    []*Package
}

// NewPackageSession returns an empty session.
func NewPackageSession() *PackageSession {
	return &PackageSession{packages: map[string]*Package{}}
}

// AddPackage loads p into the session.
func (s *PackageSession) AddPackage(p *Package) error {
	if _, ok := s.packages[p.Meta.Name]; ok {
		return errors.Reason("session already contains a package named %q", p.Meta.Name).Err()
	}
	s.packages[p.Meta.Name] = p
	s.order = append(s.order, p)
	return nil
}

// Package resolves a loaded package by name.
func (s *PackageSession) Package(name string) *Package {
	return s.packages[name]
}

// Packages returns loaded packages in load order.
func (s *PackageSession) Packages() []*Package {
	return s.order
}

// FindAsset resolves an item by id across every loaded package.
func (s *PackageSession) FindAsset(id Id) *Item {
	for _, p := range s.order {
		if item := p.FindAsset(id); item != nil {
			return item
		}
	}
	return nil
}

// FindAssetByLocation resolves an item by location across every loaded
// package.
func (s *PackageSession) FindAssetByLocation(location string) *Item {
	for _, p := range s.order {
		if item := p.FindAssetByLocation(location); item != nil {
			return item
		}
	}
	return nil
}

// ResolveReference resolves a reference by id, then by location.
func (s *PackageSession) ResolveReference(ref Reference) *Item {
	if !ref.Id.IsNil() {
		if item := s.FindAsset(ref.Id); item != nil {
			return item
		}
	}
	if ref.Location != "" {
		return s.FindAssetByLocation(ref.Location)
	}
	return nil
}

// AnalysisResult carries the findings of a session integrity analysis.
type AnalysisResult struct {
	// Errors are integrity violations; any of them makes the session
	// unsafe to build from.
	Errors errors.MultiError
}

// HasErrors reports whether the analysis found integrity violations.
func (r *AnalysisResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Analyze runs the session-wide consistency analysis: duplicate asset
// ids across packages, dangling root references, and unresolvable
// package dependencies. Enumeration from an unhealthy session yields
// nothing, so these are session-level errors rather than per-asset
// ones.
func (s *PackageSession) Analyze() *AnalysisResult {
	res := &AnalysisResult{}

	seen := map[Id]*Item{}
	for _, p := range s.order {
		for _, item := range p.Assets() {
			if prev, ok := seen[item.Id]; ok {
				res.Errors = append(res.Errors,
					errors.Reason("duplicate asset id %s used by %q and %q", item.Id, prev.Location, item.Location).Err())
				continue
			}
			seen[item.Id] = item
		}
	}

	names := stringset.New(len(s.packages))
	for name := range s.packages {
		names.Add(name)
	}
	for _, p := range s.order {
		for _, dep := range p.Dependencies {
			if !names.Has(dep.Name) {
				res.Errors = append(res.Errors,
					errors.Reason("package %q depends on %q %s which is not loaded", p.Meta.Name, dep.Name, dep.Version).Err())
			}
		}
		for _, ref := range p.RootAssets {
			if p.ResolveRoot(ref) == nil && s.ResolveReference(ref) == nil {
				res.Errors = append(res.Errors,
					errors.Reason("package %q declares unresolvable root asset %s (%q)", p.Meta.Name, ref.Id, ref.Location).Err())
			}
		}
	}
	return res
}

// Direction selects which end of the reference edges a dependency query
// follows.
type Direction int

const (
	// Out follows references declared by the asset itself.
	Out Direction = iota
	// In follows references pointing at the asset.
	In
)

// Dependencies answers "what does this asset depend on" (Out) or "what
// depends on this asset" (In) over declared reference edges, optionally
// transitively. Unresolvable references are skipped: integrity of
// references is Analyze's concern.
func (s *PackageSession) Dependencies(id Id, dir Direction, transitive bool) []*Item {
	var neighbors func(of *Item) []*Item
	switch dir {
	case Out:
		neighbors = func(of *Item) []*Item {
			var out []*Item
			for _, ref := range of.References() {
				if item := s.ResolveReference(ref); item != nil {
					out = append(out, item)
				}
			}
			return out
		}
	case In:
		neighbors = func(of *Item) []*Item {
			var out []*Item
			for _, p := range s.order {
				for _, candidate := range p.Assets() {
					for _, ref := range candidate.References() {
						if ref.Id == of.Id || (ref.Id.IsNil() && ref.Location == of.Location) {
							out = append(out, candidate)
							break
						}
					}
				}
			}
			return out
		}
	}

	start := s.FindAsset(id)
	if start == nil {
		return nil
	}
	if !transitive {
		return neighbors(start)
	}

	visited := map[Id]bool{start.Id: true}
	var out []*Item
	queue := neighbors(start)
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if visited[item.Id] {
			continue
		}
		visited[item.Id] = true
		out = append(out, item)
		queue = append(queue, neighbors(item)...)
	}
	return out
}
