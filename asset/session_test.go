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
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"
)

type linkedAsset struct {
	refs []Reference
}

func (a *linkedAsset) AssetReferences() []Reference { return a.refs }

func TestSession(t *testing.T) {
	t.Parallel()

	ftt.Run("PackageSession", t, func(t *ftt.Test) {
		s := NewPackageSession()
		game := NewPackage(Meta{Name: "game", Version: "1.0"})
		engine := NewPackage(Meta{Name: "engine", Version: "2.1"})
		assert.Loosely(t, s.AddPackage(game), should.BeNil)
		assert.Loosely(t, s.AddPackage(engine), should.BeNil)

		t.Run("rejects duplicate package names", func(t *ftt.Test) {
			err := s.AddPackage(NewPackage(Meta{Name: "game"}))
			assert.Loosely(t, err, should.ErrLike(`already contains a package named "game"`))
		})

		t.Run("resolves across packages", func(t *ftt.Test) {
			id := NewId()
			item, err := engine.AddAsset(id, "shaders/basic", &linkedAsset{})
			assert.Loosely(t, err, should.BeNil)

			assert.Loosely(t, s.FindAsset(id), should.Equal(item))
			assert.Loosely(t, s.FindAssetByLocation("shaders/basic"), should.Equal(item))
			assert.Loosely(t, s.ResolveReference(Reference{Location: "shaders/basic"}), should.Equal(item))
			assert.Loosely(t, s.ResolveReference(Reference{Id: NewId(), Location: "shaders/basic"}), should.Equal(item))
		})
	})
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	ftt.Run("Analyze", t, func(t *ftt.Test) {
		s := NewPackageSession()
		game := NewPackage(Meta{Name: "game", Version: "1.0"})
		assert.Loosely(t, s.AddPackage(game), should.BeNil)

		id := NewId()
		_, err := game.AddAsset(id, "scenes/main", &linkedAsset{})
		assert.Loosely(t, err, should.BeNil)
		game.RootAssets = []Reference{{Id: id}}

		t.Run("healthy session", func(t *ftt.Test) {
			res := s.Analyze()
			assert.Loosely(t, res.HasErrors(), should.BeFalse)
		})

		t.Run("duplicate ids across packages", func(t *ftt.Test) {
			other := NewPackage(Meta{Name: "dlc", Version: "1.0"})
			assert.Loosely(t, s.AddPackage(other), should.BeNil)
			_, err := other.AddAsset(id, "scenes/extra", &linkedAsset{})
			assert.Loosely(t, err, should.BeNil)

			res := s.Analyze()
			assert.Loosely(t, res.HasErrors(), should.BeTrue)
			assert.Loosely(t, res.Errors[0], should.ErrLike("duplicate asset id"))
		})

		t.Run("missing package dependency", func(t *ftt.Test) {
			game.Dependencies = []Dependency{{Name: "engine", Version: "2.1"}}

			res := s.Analyze()
			assert.Loosely(t, res.HasErrors(), should.BeTrue)
			assert.Loosely(t, res.Errors[0], should.ErrLike(`depends on "engine" 2.1 which is not loaded`))
		})

		t.Run("unresolvable root", func(t *ftt.Test) {
			game.RootAssets = append(game.RootAssets, Reference{Location: "scenes/missing"})

			res := s.Analyze()
			assert.Loosely(t, res.HasErrors(), should.BeTrue)
			assert.Loosely(t, res.Errors[0], should.ErrLike("unresolvable root asset"))
		})
	})
}

func TestDependencies(t *testing.T) {
	t.Parallel()

	ftt.Run("Dependencies", t, func(t *ftt.Test) {
		s := NewPackageSession()
		p := NewPackage(Meta{Name: "game"})
		assert.Loosely(t, s.AddPackage(p), should.BeNil)

		// a -> b -> c, and d -> b.
		aId, bId, cId, dId := NewId(), NewId(), NewId(), NewId()
		c, err := p.AddAsset(cId, "c", &linkedAsset{})
		assert.Loosely(t, err, should.BeNil)
		b, err := p.AddAsset(bId, "b", &linkedAsset{refs: []Reference{{Id: cId}}})
		assert.Loosely(t, err, should.BeNil)
		a, err := p.AddAsset(aId, "a", &linkedAsset{refs: []Reference{{Id: bId}}})
		assert.Loosely(t, err, should.BeNil)
		d, err := p.AddAsset(dId, "d", &linkedAsset{refs: []Reference{{Location: "b"}}})
		assert.Loosely(t, err, should.BeNil)

		t.Run("direct out", func(t *ftt.Test) {
			assert.Loosely(t, s.Dependencies(aId, Out, false), should.Match([]*Item{b}, cmp.AllowUnexported(linkedAsset{}), cmpopts.IgnoreUnexported(Package{})))
		})

		t.Run("transitive out", func(t *ftt.Test) {
			assert.Loosely(t, s.Dependencies(aId, Out, true), should.Match([]*Item{b, c}, cmp.AllowUnexported(linkedAsset{}), cmpopts.IgnoreUnexported(Package{})))
		})

		t.Run("direct in", func(t *ftt.Test) {
			in := s.Dependencies(bId, In, false)
			assert.Loosely(t, in, should.HaveLength(2))
			assert.Loosely(t, in, should.Contain(a))
			assert.Loosely(t, in, should.Contain(d))
		})

		t.Run("transitive in", func(t *ftt.Test) {
			in := s.Dependencies(cId, In, true)
			assert.Loosely(t, in, should.HaveLength(3))
			assert.Loosely(t, in, should.Contain(a))
			assert.Loosely(t, in, should.Contain(b))
			assert.Loosely(t, in, should.Contain(d))
		})

		t.Run("cycles terminate", func(t *ftt.Test) {
			c.Asset.(*linkedAsset).refs = []Reference{{Id: aId}}
			out := s.Dependencies(aId, Out, true)
			assert.Loosely(t, out, should.Match([]*Item{b, c}, cmp.AllowUnexported(linkedAsset{}), cmpopts.IgnoreUnexported(Package{})))
		})

		t.Run("unknown asset", func(t *ftt.Test) {
			assert.Loosely(t, s.Dependencies(NewId(), Out, true), should.BeNil)
		})
	})
}
