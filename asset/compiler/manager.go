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
	"reflect"

	"go.chromium.org/luci/common/logging"

	"github.com/assetforge/assetforge/asset"
)

// BuildDependencyManager plans a whole build: it enumerates the root
// set of a package, expands it along Runtime dependency edges, resolves
// one compiler per scheduled asset and produces one AssetBuildStep per
// asset, with data dependency edges wired between them.
//
// Planning is single-goroutine; the produced steps are handed to the
// builder afterwards.
type BuildDependencyManager struct {
	session  *asset.PackageSession
	registry *Registry
	kind     ContextKind
}

// NewBuildDependencyManager returns a manager planning for kind.
func NewBuildDependencyManager(session *asset.PackageSession, registry *Registry, kind ContextKind) *BuildDependencyManager {
	return &BuildDependencyManager{session: session, registry: registry, kind: kind}
}

// Plan produces the build step graph for pkg.
//
// Per-asset planning failures (no compiler, missing source) are
// recorded in the result and sink only the offending asset's step; its
// dependents still build, just without that data dependency. Only a
// failed session analysis empties the whole plan.
func (m *BuildDependencyManager) Plan(ctx context.Context, pkg *asset.Package) *Result {
	res := &Result{}
	cc := &CompileContext{Kind: m.kind, Session: m.session, Registry: m.registry}
	enum := &Enumerator{Session: m.session, Registry: m.registry}

	p := &planner{
		mgr:      m,
		cc:       cc,
		res:      res,
		steps:    map[asset.Id]*AssetBuildStep{},
		planning: map[asset.Id]bool{},
	}
	for _, item := range enum.Enumerate(ctx, pkg) {
		p.plan(ctx, item)
	}
	logging.Debugf(ctx, "planned %d asset steps for package %q (%d errors)",
		len(res.BuildSteps), pkg.Meta.Name, len(res.Errors))
	return res
}

// planner carries the per-Plan bookkeeping: dedupe by asset id and a
// cycle guard for assets whose planning is in progress.
type planner struct {
	mgr      *BuildDependencyManager
	cc       *CompileContext
	res      *Result
	steps    map[asset.Id]*AssetBuildStep
	planning map[asset.Id]bool
}

// plan schedules item, recursively scheduling its Runtime dependencies
// first, and returns its step. Returns nil when planning failed (the
// error is already recorded) or when item is part of a reference cycle
// still being planned.
func (p *planner) plan(ctx context.Context, item *asset.Item) *AssetBuildStep {
	if step, ok := p.steps[item.Id]; ok {
		return step
	}
	if p.planning[item.Id] {
		return nil
	}
	p.planning[item.Id] = true

	comp := p.mgr.registry.Compiler(p.mgr.kind, item)
	if comp == nil {
		p.res.Errorf(item, "no compiler registered for asset type %s in %s context",
			reflect.TypeOf(item.Asset), p.mgr.kind)
		return nil
	}

	step := NewAssetBuildStep(item)

	// Runtime edges schedule the referenced asset and make its outputs
	// visible here. CompileAsset-only edges feed the planning call but
	// never schedule on their own.
	inputs := comp.InputTypes(item)
	for _, ref := range item.References() {
		dep := p.mgr.session.ResolveReference(ref)
		if dep == nil {
			p.res.Warningf(item, "reference %s (%q) does not resolve", ref.Id, ref.Location)
			continue
		}
		dt, ok := matchInput(inputs, dep.Asset)
		if !ok {
			continue
		}
		if dt.Has(Runtime) {
			if depStep := p.plan(ctx, dep); depStep != nil {
				step.AddInput(depStep, depStep.OutputGroup())
			}
		}
	}

	for _, depStep := range comp.BuildDependencies(ctx, p.cc, item) {
		step.AddInput(depStep, depStep.OutputGroup())
	}

	r := comp.Compile(ctx, p.cc, item)
	p.res.absorb(r)
	if r.HasErrors() {
		return nil
	}
	step.Add(r.BuildSteps...)

	p.steps[item.Id] = step
	p.res.BuildSteps = append(p.res.BuildSteps, step)
	return step
}

// matchInput finds the declared edge strength for a's exact type.
func matchInput(inputs []InputType, a asset.Asset) (DependencyType, bool) {
	t := reflect.TypeOf(a)
	for _, in := range inputs {
		if in.Type == t {
			return in.Dependency, true
		}
	}
	return 0, false
}
