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

// Package compiler turns asset items into build step graphs.
//
// Compiling is a two phase affair. The planning phase, implemented
// here, resolves a compiler per asset, walks declared dependencies and
// produces builder steps; it runs single-goroutine and must stay cheap.
// The heavy work happens later inside the produced commands, scheduled
// by the builder.
package compiler

import (
	"context"
	"fmt"
	"reflect"

	"github.com/assetforge/assetforge/asset"
	"github.com/assetforge/assetforge/builder"
)

// DependencyType is the strength of an edge between two asset types.
type DependencyType int

const (
	// Runtime marks a dependency whose compiled output is needed at
	// runtime next to the dependent's output. Runtime edges schedule the
	// referenced asset for its own compilation.
	Runtime DependencyType = 1 << iota

	// CompileAsset marks a dependency whose asset value is read while
	// compiling the dependent. It does not by itself schedule the
	// referenced asset.
	CompileAsset
)

// CompileContent marks a dependency needed both ways.
const CompileContent = Runtime | CompileAsset

// Has reports whether d carries every bit of flag.
func (d DependencyType) Has(flag DependencyType) bool {
	return d&flag == flag
}

func (d DependencyType) String() string {
	switch d {
	case Runtime:
		return "Runtime"
	case CompileAsset:
		return "CompileAsset"
	case CompileContent:
		return "CompileContent"
	default:
		return fmt.Sprintf("DependencyType(%d)", int(d))
	}
}

// InputType declares that a compiler may follow references to assets of
// Type, with the given edge strength. Used for dependency analysis
// only.
type InputType struct {
	Type       reflect.Type
	Dependency DependencyType
}

// InputOf builds an InputType from a prototype asset value.
func InputOf(prototype asset.Asset, dep DependencyType) InputType {
	return InputType{Type: reflect.TypeOf(prototype), Dependency: dep}
}

// ContextKind selects what the compilation output targets.
type ContextKind int

const (
	// RuntimeContext compiles assets into their runtime form.
	RuntimeContext ContextKind = iota
	// ToolContext compiles assets for authoring tools.
	ToolContext
)

func (k ContextKind) String() string {
	switch k {
	case RuntimeContext:
		return "runtime"
	case ToolContext:
		return "tool"
	default:
		return fmt.Sprintf("ContextKind(%d)", int(k))
	}
}

// CompileContext carries everything a compiler's planning phase may
// consult.
type CompileContext struct {
	Kind     ContextKind
	Session  *asset.PackageSession
	Registry *Registry
}

// AssetCompiler plans the compilation of one asset kind.
//
// Compile must only produce the step graph, never run the heavy work
// itself. InputTypes describes which other asset types the compiler may
// follow references to, for dependency analysis.
type AssetCompiler interface {
	Compile(ctx context.Context, cc *CompileContext, item *asset.Item) *Result
	BuildDependencies(ctx context.Context, cc *CompileContext, item *asset.Item) []*AssetBuildStep
	InputTypes(item *asset.Item) []InputType
}

// Message is a planning diagnostic attached to an asset item.
type Message struct {
	Item *asset.Item
	Text string
}

func (m Message) String() string {
	return m.Item.String() + ": " + m.Text
}

// Result accumulates the outcome of planning: the produced steps plus
// per-asset diagnostics. Errors short-circuit the offending asset only;
// sibling assets keep their steps.
type Result struct {
	BuildSteps []builder.BuildStep
	Errors     []Message
	Warnings   []Message
}

// Errorf attaches a planning error to item.
func (r *Result) Errorf(item *asset.Item, format string, args ...any) {
	r.Errors = append(r.Errors, Message{Item: item, Text: fmt.Sprintf(format, args...)})
}

// Warningf attaches a planning warning to item.
func (r *Result) Warningf(item *asset.Item, format string, args ...any) {
	r.Warnings = append(r.Warnings, Message{Item: item, Text: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any planning error was recorded.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// absorb moves o's diagnostics into r, leaving o's steps alone.
func (r *Result) absorb(o *Result) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// RootStep wraps every planned step into one parallel list suitable to
// hand to the builder. Ordering between asset steps is carried by their
// data dependency edges.
func (r *Result) RootStep(title string) *builder.ListBuildStep {
	return builder.NewListBuildStep(title, builder.Parallel, r.BuildSteps...)
}
