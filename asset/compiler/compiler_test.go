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
	"path/filepath"
	"testing"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"

	"github.com/assetforge/assetforge/asset"
	"github.com/assetforge/assetforge/builder"
	"github.com/assetforge/assetforge/contentdb"
)

type gameAsset struct{ refs []asset.Reference }

func (a *gameAsset) AssetReferences() []asset.Reference { return a.refs }

type sceneAsset struct{ refs []asset.Reference }

func (a *sceneAsset) AssetReferences() []asset.Reference { return a.refs }

type textureAsset struct{ Source string }

func (a *textureAsset) SourceFiles() []string {
	if a.Source == "" {
		return nil
	}
	return []string{a.Source}
}

type settingsAsset struct{}

type noteAsset struct{}

func planOnly[T asset.Asset](inputs ...InputType) func() AssetCompiler {
	return func() AssetCompiler {
		return &Typed[T]{
			CompileFunc: func(ctx context.Context, cc *CompileContext, item *asset.Item, value T) *Result {
				return &Result{}
			},
			Inputs: inputs,
		}
	}
}

// fullRegistry registers planning-only compilers for every test asset
// type. Edge strengths: game follows scenes at Runtime and textures at
// CompileAsset; scenes follow textures at Runtime.
func fullRegistry() *Registry {
	r := NewRegistry()
	r.Register(RuntimeContext, &gameAsset{}, planOnly[*gameAsset](
		InputOf(&sceneAsset{}, Runtime),
		InputOf(&textureAsset{}, CompileAsset),
	))
	r.Register(RuntimeContext, &sceneAsset{}, planOnly[*sceneAsset](
		InputOf(&textureAsset{}, Runtime),
	))
	r.Register(RuntimeContext, &textureAsset{}, planOnly[*textureAsset]())
	r.Register(RuntimeContext, &settingsAsset{}, planOnly[*settingsAsset]())
	r.RegisterAlwaysRoot(&settingsAsset{})
	return r
}

func mustAdd(t *ftt.Test, p *asset.Package, location string, a asset.Asset) *asset.Item {
	item, err := p.AddAsset(asset.NewId(), location, a)
	assert.Loosely(t, err, should.BeNil)
	return item
}

func stepIds(res *Result) stringset.Set {
	ids := stringset.New(len(res.BuildSteps))
	for _, s := range res.BuildSteps {
		ids.Add(s.(*AssetBuildStep).Item.Id.String())
	}
	return ids
}

func TestEnumerator(t *testing.T) {
	t.Parallel()

	ftt.Run("Enumerator", t, func(t *ftt.Test) {
		ctx := context.Background()
		reg := fullRegistry()
		session := asset.NewPackageSession()
		pkg := NewPackageWithName(t, session, "game")

		t.Run("empty package yields nothing", func(t *ftt.Test) {
			e := &Enumerator{Session: session, Registry: reg}
			assert.Loosely(t, e.Enumerate(ctx, pkg), should.HaveLength(0))
		})

		t.Run("declared roots resolve by id then location", func(t *ftt.Test) {
			byId := mustAdd(t, pkg, "scenes/a", &sceneAsset{})
			byLoc := mustAdd(t, pkg, "scenes/b", &sceneAsset{})
			mustAdd(t, pkg, "scenes/unreferenced", &sceneAsset{})
			pkg.RootAssets = []asset.Reference{
				{Id: byId.Id},
				{Location: byLoc.Location},
			}

			e := &Enumerator{Session: session, Registry: reg}
			items := e.Enumerate(ctx, pkg)
			assert.Loosely(t, itemIds(items), should.Match(stringset.NewFromSlice(byId.Id.String(), byLoc.Id.String())))
		})

		t.Run("recurses into package dependencies", func(t *ftt.Test) {
			dep := NewPackageWithName(t, session, "engine")
			depRoot := mustAdd(t, dep, "scenes/shared", &sceneAsset{})
			dep.RootAssets = []asset.Reference{{Id: depRoot.Id}}
			pkg.Dependencies = []asset.Dependency{{Name: "engine", Version: "1.0"}}

			local := asset.NewPackage(asset.Meta{Name: "local"})
			assert.Loosely(t, session.AddPackage(local), should.BeNil)
			localRoot := mustAdd(t, local, "scenes/local", &sceneAsset{})
			local.RootAssets = []asset.Reference{{Id: localRoot.Id}}
			pkg.LocalDependencies = []*asset.Package{local}

			e := &Enumerator{Session: session, Registry: reg}
			items := e.Enumerate(ctx, pkg)
			assert.Loosely(t, itemIds(items), should.Match(stringset.NewFromSlice(depRoot.Id.String(), localRoot.Id.String())))
		})

		t.Run("always-root types need no reachability", func(t *ftt.Test) {
			settings := mustAdd(t, pkg, "settings", &settingsAsset{})

			e := &Enumerator{Session: session, Registry: reg}
			items := e.Enumerate(ctx, pkg)
			assert.Loosely(t, itemIds(items), should.Match(stringset.NewFromSlice(settings.Id.String())))
		})

		t.Run("failed analysis yields nothing", func(t *ftt.Test) {
			item := mustAdd(t, pkg, "scenes/a", &sceneAsset{})
			pkg.RootAssets = []asset.Reference{{Id: item.Id}, {Location: "scenes/missing"}}

			e := &Enumerator{Session: session, Registry: reg}
			assert.Loosely(t, e.Enumerate(ctx, pkg), should.BeNil)
		})

		t.Run("dependency cycles terminate", func(t *ftt.Test) {
			other := NewPackageWithName(t, session, "dlc")
			pkg.Dependencies = []asset.Dependency{{Name: "dlc", Version: "1"}}
			other.Dependencies = []asset.Dependency{{Name: "game", Version: "1"}}
			item := mustAdd(t, other, "scenes/x", &sceneAsset{})
			other.RootAssets = []asset.Reference{{Id: item.Id}}

			e := &Enumerator{Session: session, Registry: reg}
			items := e.Enumerate(ctx, pkg)
			assert.Loosely(t, itemIds(items), should.Match(stringset.NewFromSlice(item.Id.String())))
		})
	})
}

// NewPackageWithName adds a fresh package to the session.
func NewPackageWithName(t *ftt.Test, s *asset.PackageSession, name string) *asset.Package {
	p := asset.NewPackage(asset.Meta{Name: name, Version: "1.0"})
	assert.Loosely(t, s.AddPackage(p), should.BeNil)
	return p
}

func itemIds(items []*asset.Item) stringset.Set {
	ids := stringset.New(len(items))
	for _, item := range items {
		ids.Add(item.Id.String())
	}
	return ids
}

func TestPlanIncludeTypes(t *testing.T) {
	t.Parallel()

	ftt.Run("Plan follows Runtime edges only", t, func(t *ftt.Test) {
		ctx := context.Background()
		reg := fullRegistry()
		session := asset.NewPackageSession()
		pkg := NewPackageWithName(t, session, "game")

		// asset1 -> asset2 (scene, Runtime) and asset3a (texture,
		// CompileAsset); asset2 -> asset3b (texture, Runtime).
		asset3a := mustAdd(t, pkg, "textures/3a", &textureAsset{})
		asset3b := mustAdd(t, pkg, "textures/3b", &textureAsset{})
		asset2 := mustAdd(t, pkg, "scenes/2", &sceneAsset{refs: []asset.Reference{{Id: asset3b.Id}}})
		asset1 := mustAdd(t, pkg, "game/1", &gameAsset{refs: []asset.Reference{{Id: asset2.Id}, {Id: asset3a.Id}}})
		pkg.RootAssets = []asset.Reference{{Id: asset1.Id}}

		m := NewBuildDependencyManager(session, reg, RuntimeContext)
		res := m.Plan(ctx, pkg)

		assert.Loosely(t, res.HasErrors(), should.BeFalse)
		assert.Loosely(t, res.BuildSteps, should.HaveLength(3))
		assert.Loosely(t, stepIds(res), should.Match(stringset.NewFromSlice(
			asset1.Id.String(), asset2.Id.String(), asset3b.Id.String())))
	})
}

func TestPlanDeduplicates(t *testing.T) {
	t.Parallel()

	ftt.Run("Diamond compiles the shared asset once", t, func(t *ftt.Test) {
		ctx := context.Background()
		reg := fullRegistry()
		session := asset.NewPackageSession()
		pkg := NewPackageWithName(t, session, "game")

		d := mustAdd(t, pkg, "textures/d", &textureAsset{})
		b := mustAdd(t, pkg, "scenes/b", &sceneAsset{refs: []asset.Reference{{Id: d.Id}}})
		c := mustAdd(t, pkg, "scenes/c", &sceneAsset{refs: []asset.Reference{{Id: d.Id}}})
		a := mustAdd(t, pkg, "game/a", &gameAsset{refs: []asset.Reference{{Id: b.Id}, {Id: c.Id}}})
		pkg.RootAssets = []asset.Reference{{Id: a.Id}}

		m := NewBuildDependencyManager(session, reg, RuntimeContext)
		res := m.Plan(ctx, pkg)

		assert.Loosely(t, res.HasErrors(), should.BeFalse)
		assert.Loosely(t, res.BuildSteps, should.HaveLength(4))
	})

	ftt.Run("Reference cycles terminate", t, func(t *ftt.Test) {
		ctx := context.Background()
		reg := NewRegistry()
		reg.Register(RuntimeContext, &sceneAsset{}, planOnly[*sceneAsset](
			InputOf(&sceneAsset{}, Runtime),
		))
		session := asset.NewPackageSession()
		pkg := NewPackageWithName(t, session, "game")

		aId, bId := asset.NewId(), asset.NewId()
		_, err := pkg.AddAsset(aId, "scenes/a", &sceneAsset{refs: []asset.Reference{{Id: bId}}})
		assert.Loosely(t, err, should.BeNil)
		_, err = pkg.AddAsset(bId, "scenes/b", &sceneAsset{refs: []asset.Reference{{Id: aId}}})
		assert.Loosely(t, err, should.BeNil)
		pkg.RootAssets = []asset.Reference{{Id: aId}}

		m := NewBuildDependencyManager(session, reg, RuntimeContext)
		res := m.Plan(ctx, pkg)

		assert.Loosely(t, res.HasErrors(), should.BeFalse)
		assert.Loosely(t, res.BuildSteps, should.HaveLength(2))
	})
}

func TestPlanDeterminism(t *testing.T) {
	t.Parallel()

	ftt.Run("Root set is order independent", t, func(t *ftt.Test) {
		ctx := context.Background()

		build := func(reversed bool) stringset.Set {
			reg := fullRegistry()
			session := asset.NewPackageSession()
			pkg := asset.NewPackage(asset.Meta{Name: "game", Version: "1.0"})
			assert.Loosely(t, session.AddPackage(pkg), should.BeNil)

			locations := []string{"scenes/a", "scenes/b", "scenes/c"}
			if reversed {
				locations = []string{"scenes/c", "scenes/b", "scenes/a"}
			}
			for _, loc := range locations {
				item, err := pkg.AddAsset(asset.NewId(), loc, &sceneAsset{})
				assert.Loosely(t, err, should.BeNil)
				pkg.RootAssets = append(pkg.RootAssets, asset.Reference{Id: item.Id})
			}

			m := NewBuildDependencyManager(session, reg, RuntimeContext)
			res := m.Plan(ctx, pkg)
			assert.Loosely(t, res.HasErrors(), should.BeFalse)

			locs := stringset.New(3)
			for _, s := range res.BuildSteps {
				locs.Add(s.(*AssetBuildStep).Item.Location)
			}
			return locs
		}

		assert.Loosely(t, build(false), should.Match(build(true)))
	})
}

func TestPlanErrors(t *testing.T) {
	t.Parallel()

	ftt.Run("Planning", t, func(t *ftt.Test) {
		ctx := context.Background()
		session := asset.NewPackageSession()
		pkg := NewPackageWithName(t, session, "game")

		t.Run("missing compiler is a per-asset error", func(t *ftt.Test) {
			reg := NewRegistry()
			reg.Register(RuntimeContext, &sceneAsset{}, planOnly[*sceneAsset]())

			good := mustAdd(t, pkg, "scenes/good", &sceneAsset{})
			bad := mustAdd(t, pkg, "notes/bad", &noteAsset{})
			pkg.RootAssets = []asset.Reference{{Id: good.Id}, {Id: bad.Id}}

			m := NewBuildDependencyManager(session, reg, RuntimeContext)
			res := m.Plan(ctx, pkg)

			assert.Loosely(t, res.Errors, should.HaveLength(1))
			assert.Loosely(t, res.Errors[0].Item, should.Equal(bad))
			assert.Loosely(t, res.Errors[0].Text, should.ContainSubstring("no compiler registered"))
			assert.Loosely(t, stepIds(res), should.Match(stringset.NewFromSlice(good.Id.String())))
		})

		t.Run("missing source is a per-asset error", func(t *ftt.Test) {
			reg := fullRegistry()
			tex := mustAdd(t, pkg, "textures/gone", &textureAsset{Source: filepath.Join(t.TempDir(), "gone.png")})
			ok := mustAdd(t, pkg, "scenes/ok", &sceneAsset{})
			pkg.RootAssets = []asset.Reference{{Id: tex.Id}, {Id: ok.Id}}

			m := NewBuildDependencyManager(session, reg, RuntimeContext)
			res := m.Plan(ctx, pkg)

			assert.Loosely(t, res.Errors, should.HaveLength(1))
			assert.Loosely(t, res.Errors[0].Item, should.Equal(tex))
			assert.Loosely(t, res.Errors[0].Text, should.ContainSubstring("source file"))
			assert.Loosely(t, stepIds(res), should.Match(stringset.NewFromSlice(ok.Id.String())))
		})
	})
}

func TestPlanEndToEnd(t *testing.T) {
	t.Parallel()

	ftt.Run("Root R with Runtime dep S and CompileAsset dep T", t, func(t *ftt.Test) {
		ctx := context.Background()
		dir := t.TempDir()
		source := filepath.Join(dir, "s.png")
		assert.Loosely(t, os.WriteFile(source, []byte("pixels"), 0o600), should.BeNil)

		// Only the game type has a registered compiler; S falls back to
		// the raw importer, T is never scheduled so it needs none.
		reg := NewRegistry()
		reg.Register(RuntimeContext, &gameAsset{}, planOnly[*gameAsset](
			InputOf(&textureAsset{}, Runtime),
			InputOf(&noteAsset{}, CompileAsset),
		))

		session := asset.NewPackageSession()
		pkg := NewPackageWithName(t, session, "p")
		s := mustAdd(t, pkg, "textures/s", &textureAsset{Source: source})
		tt := mustAdd(t, pkg, "notes/t", &noteAsset{})
		r := mustAdd(t, pkg, "game/r", &gameAsset{refs: []asset.Reference{{Id: s.Id}, {Id: tt.Id}}})
		pkg.RootAssets = []asset.Reference{{Id: r.Id}}

		m := NewBuildDependencyManager(session, reg, RuntimeContext)

		t.Run("schedules R and S, never T", func(t *ftt.Test) {
			res := m.Plan(ctx, pkg)
			assert.Loosely(t, res.HasErrors(), should.BeFalse)
			assert.Loosely(t, stepIds(res), should.Match(stringset.NewFromSlice(r.Id.String(), s.Id.String())))

			t.Run("and the built index holds S's import", func(t *ftt.Test) {
				odb, err := contentdb.OpenFileObjectDatabase(filepath.Join(dir, "odb"))
				assert.Loosely(t, err, should.BeNil)
				index := contentdb.NewMemoryIndexMap()

				b := builder.New(builder.Options{IndexMap: index, ObjectDatabase: odb})
				result := b.Run(ctx, res.RootStep("build p"))

				assert.Loosely(t, result.Status, should.Equal(builder.Successful))
				assert.Loosely(t, result.Failed, should.BeZero)

				want, err := contentdb.ComputeFileHash(source)
				assert.Loosely(t, err, should.BeNil)
				got, ok := index.TryGetValue(contentdb.ContentUrl("textures/s"))
				assert.Loosely(t, ok, should.BeTrue)
				assert.Loosely(t, got, should.Equal(want))
				assert.Loosely(t, odb.Contains(want), should.BeTrue)
			})
		})

		t.Run("deleted source becomes a planning error, T stays unscheduled", func(t *ftt.Test) {
			assert.Loosely(t, os.Remove(source), should.BeNil)

			res := m.Plan(ctx, pkg)
			assert.Loosely(t, res.HasErrors(), should.BeTrue)
			assert.Loosely(t, res.Errors[0].Item, should.Equal(s))
			assert.Loosely(t, res.Errors[0].Text, should.ContainSubstring("source file"))
			assert.Loosely(t, stepIds(res), should.Match(stringset.NewFromSlice(r.Id.String())))
		})
	})
}
