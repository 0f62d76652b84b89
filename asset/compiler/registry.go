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
	"reflect"

	"github.com/assetforge/assetforge/asset"
)

type registryKey struct {
	assetType reflect.Type
	kind      ContextKind
}

// Registry resolves asset types to compilers. Registrations are
// explicit and the registry is constructed per process or per test;
// there are no package level defaults.
type Registry struct {
	compilers  map[registryKey]func() AssetCompiler
	alwaysRoot map[reflect.Type]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		compilers:  map[registryKey]func() AssetCompiler{},
		alwaysRoot: map[reflect.Type]bool{},
	}
}

// Register binds the exact type of prototype, under the given context
// kind, to a compiler factory.
func (r *Registry) Register(kind ContextKind, prototype asset.Asset, factory func() AssetCompiler) {
	r.compilers[registryKey{assetType: reflect.TypeOf(prototype), kind: kind}] = factory
}

// RegisterAlwaysRoot marks prototype's type as always a build root:
// its instances are enumerated even when no declared root reaches them.
func (r *Registry) RegisterAlwaysRoot(prototype asset.Asset) {
	r.alwaysRoot[reflect.TypeOf(prototype)] = true
}

// IsAlwaysRoot reports whether a's type was marked always root.
func (r *Registry) IsAlwaysRoot(a asset.Asset) bool {
	return r.alwaysRoot[reflect.TypeOf(a)]
}

// Compiler resolves the compiler for item under kind. With no
// registration, source-bearing assets fall back to the raw passthrough
// compiler; anything else resolves to nil.
func (r *Registry) Compiler(kind ContextKind, item *asset.Item) AssetCompiler {
	if factory, ok := r.compilers[registryKey{assetType: reflect.TypeOf(item.Asset), kind: kind}]; ok {
		return factory()
	}
	if _, ok := item.Asset.(asset.SourceProvider); ok {
		return rawCompiler{}
	}
	return nil
}
