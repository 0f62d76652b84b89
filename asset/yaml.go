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
	"os"
	"reflect"
	"sort"

	"gopkg.in/yaml.v2"

	"go.chromium.org/luci/common/errors"
)

// TypeCodecs maps manifest type names to asset factories. It is an
// explicit registry populated by each asset-type module at startup;
// nothing is discovered by scanning.
type TypeCodecs struct {
	factories map[string]func() Asset
	names     map[reflect.Type]string
}

// NewTypeCodecs returns an empty codec table.
func NewTypeCodecs() *TypeCodecs {
	return &TypeCodecs{
		factories: map[string]func() Asset{},
		names:     map[reflect.Type]string{},
	}
}

// Register binds a manifest type name to a factory producing an empty
// asset value of that type.
func (c *TypeCodecs) Register(name string, factory func() Asset) {
	c.factories[name] = factory
	c.names[reflect.TypeOf(factory())] = name
}

// New instantiates an empty asset for the given manifest type name.
func (c *TypeCodecs) New(name string) (Asset, bool) {
	f, ok := c.factories[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// NameOf returns the manifest type name registered for a's type.
func (c *TypeCodecs) NameOf(a Asset) (string, bool) {
	name, ok := c.names[reflect.TypeOf(a)]
	return name, ok
}

// manifest is the on-disk yaml shape of a package.
type manifest struct {
	Name         string          `yaml:"name"`
	Version      string          `yaml:"version"`
	Dependencies []Dependency    `yaml:"dependencies,omitempty"`
	Roots        []manifestRef   `yaml:"roots,omitempty"`
	Assets       []manifestAsset `yaml:"assets,omitempty"`
}

type manifestRef struct {
	Id       string `yaml:"id,omitempty"`
	Location string `yaml:"location,omitempty"`
}

type manifestAsset struct {
	Id       string        `yaml:"id"`
	Location string        `yaml:"location"`
	Type     string        `yaml:"type"`
	Spec     yaml.MapSlice `yaml:"spec,omitempty"`
}

// LoadPackage decodes a package manifest, instantiating asset values
// through the codec table.
func LoadPackage(data []byte, codecs *TypeCodecs) (*Package, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Annotate(err, "parsing package manifest").Err()
	}
	p := NewPackage(Meta{Name: m.Name, Version: m.Version})
	p.Dependencies = m.Dependencies

	for _, ref := range m.Roots {
		r := Reference{Location: ref.Location}
		if ref.Id != "" {
			id, err := ParseId(ref.Id)
			if err != nil {
				return nil, errors.Annotate(err, "package %q root", m.Name).Err()
			}
			r.Id = id
		}
		p.RootAssets = append(p.RootAssets, r)
	}

	for _, ma := range m.Assets {
		id, err := ParseId(ma.Id)
		if err != nil {
			return nil, errors.Annotate(err, "package %q asset %q", m.Name, ma.Location).Err()
		}
		value, ok := codecs.New(ma.Type)
		if !ok {
			return nil, errors.Reason("package %q asset %q: unregistered asset type %q", m.Name, ma.Location, ma.Type).Err()
		}
		spec, err := yaml.Marshal(ma.Spec)
		if err != nil {
			return nil, errors.Annotate(err, "package %q asset %q", m.Name, ma.Location).Err()
		}
		if err := yaml.Unmarshal(spec, value); err != nil {
			return nil, errors.Annotate(err, "package %q asset %q: decoding %q spec", m.Name, ma.Location, ma.Type).Err()
		}
		if _, err := p.AddAsset(id, ma.Location, value); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// LoadPackageFile is LoadPackage over a manifest file.
func LoadPackageFile(path string, codecs *TypeCodecs) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "reading package manifest %q", path).Err()
	}
	p, err := LoadPackage(data, codecs)
	if err != nil {
		return nil, errors.Annotate(err, "loading %q", path).Err()
	}
	return p, nil
}

// SavePackage encodes a package back into its manifest form.
func SavePackage(p *Package, codecs *TypeCodecs) ([]byte, error) {
	m := manifest{
		Name:         p.Meta.Name,
		Version:      p.Meta.Version,
		Dependencies: p.Dependencies,
	}
	for _, ref := range p.RootAssets {
		mr := manifestRef{Location: ref.Location}
		if !ref.Id.IsNil() {
			mr.Id = ref.Id.String()
		}
		m.Roots = append(m.Roots, mr)
	}
	items := p.Assets()
	sort.Slice(items, func(i, j int) bool { return items[i].Location < items[j].Location })
	for _, item := range items {
		name, ok := codecs.NameOf(item.Asset)
		if !ok {
			return nil, errors.Reason("package %q asset %q: asset type %T is not registered", p.Meta.Name, item.Location, item.Asset).Err()
		}
		raw, err := yaml.Marshal(item.Asset)
		if err != nil {
			return nil, errors.Annotate(err, "package %q asset %q", p.Meta.Name, item.Location).Err()
		}
		var spec yaml.MapSlice
		if err := yaml.Unmarshal(raw, &spec); err != nil {
			return nil, errors.Annotate(err, "package %q asset %q", p.Meta.Name, item.Location).Err()
		}
		m.Assets = append(m.Assets, manifestAsset{
			Id:       item.Id.String(),
			Location: item.Location,
			Type:     name,
			Spec:     spec,
		})
	}
	data, err := yaml.Marshal(&m)
	if err != nil {
		return nil, errors.Annotate(err, "encoding package %q", p.Meta.Name).Err()
	}
	return data, nil
}
