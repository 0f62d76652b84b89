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
	"go.chromium.org/luci/common/errors"
)

// Meta is a package's identity.
type Meta struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// Dependency is a versioned dependency on another package, resolved by
// name within the session.
type Dependency struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// Package owns a collection of asset items, the declared build roots,
// and dependencies on other packages.
//
// Packages are mutated only while loading and planning, which is
// single-goroutine; execution-time code never touches them.
type Package struct {
	Meta Meta

	// RootAssets are the explicitly declared build roots.
	RootAssets []Reference

	// Dependencies are versioned dependencies resolved by name.
	Dependencies []Dependency

	// LocalDependencies are direct references to sibling packages loaded
	// in the same session.
	LocalDependencies []*Package

	items      map[Id]*Item
	byLocation map[string]*Item
}

// NewPackage returns an empty package.
func NewPackage(meta Meta) *Package {
	return &Package{
		Meta:       meta,
		items:      map[Id]*Item{},
		byLocation: map[string]*Item{},
	}
}

// AddAsset adds an asset value under the given id and location.
func (p *Package) AddAsset(id Id, location string, a Asset) (*Item, error) {
	if id.IsNil() {
		return nil, errors.Reason("package %s: asset %q has a nil id", p.Meta.Name, location).Err()
	}
	if _, ok := p.items[id]; ok {
		return nil, errors.Reason("package %s: duplicate asset id %s", p.Meta.Name, id).Err()
	}
	if _, ok := p.byLocation[location]; ok {
		return nil, errors.Reason("package %s: duplicate asset location %q", p.Meta.Name, location).Err()
	}
	item := &Item{Id: id, Location: location, Asset: a, Package: p}
	p.items[id] = item
	p.byLocation[location] = item
	return item, nil
}

// RemoveAsset unloads the asset with the given id, if present.
func (p *Package) RemoveAsset(id Id) {
	if item, ok := p.items[id]; ok {
		delete(p.items, id)
		delete(p.byLocation, item.Location)
	}
}

// FindAsset resolves an item by id.
func (p *Package) FindAsset(id Id) *Item {
	return p.items[id]
}

// FindAssetByLocation resolves an item by location.
func (p *Package) FindAssetByLocation(location string) *Item {
	return p.byLocation[location]
}

// Assets returns every item of the package, in unspecified order.
func (p *Package) Assets() []*Item {
	out := make([]*Item, 0, len(p.items))
	for _, item := range p.items {
		out = append(out, item)
	}
	return out
}

// ResolveRoot resolves a declared root reference, trying the id first
// and falling back to the location.
func (p *Package) ResolveRoot(ref Reference) *Item {
	if !ref.Id.IsNil() {
		if item := p.FindAsset(ref.Id); item != nil {
			return item
		}
	}
	if ref.Location != "" {
		return p.FindAssetByLocation(ref.Location)
	}
	return nil
}
