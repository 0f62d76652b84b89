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

	"github.com/assetforge/assetforge/asset"
	"github.com/assetforge/assetforge/builder"
	"github.com/assetforge/assetforge/contentdb"
)

// rawCompiler is the passthrough fallback for source-bearing assets
// with no registered compiler: each source file is imported verbatim
// into the object database and bound under the asset's location.
type rawCompiler struct{}

var _ AssetCompiler = rawCompiler{}

// Compile implements AssetCompiler.
func (rawCompiler) Compile(ctx context.Context, cc *CompileContext, item *asset.Item) *Result {
	res := &Result{}
	sources := item.SourceFiles()
	if len(sources) == 0 {
		res.Errorf(item, "raw asset declares no source files")
		return res
	}
	for _, src := range sources {
		if _, err := os.Stat(src); err != nil {
			res.Errorf(item, "source file %q: %s", src, err)
		}
	}
	if res.HasErrors() {
		return res
	}
	res.BuildSteps = append(res.BuildSteps, builder.NewCommandBuildStep(&importSourceCommand{
		location: item.Location,
		sources:  sources,
	}))
	return res
}

// BuildDependencies implements AssetCompiler.
func (rawCompiler) BuildDependencies(ctx context.Context, cc *CompileContext, item *asset.Item) []*AssetBuildStep {
	return nil
}

// InputTypes implements AssetCompiler. Raw assets follow no references.
func (rawCompiler) InputTypes(item *asset.Item) []InputType {
	return nil
}

// importSourceCommand copies source files into the object database and
// binds them in the mounted transaction.
type importSourceCommand struct {
	builder.IndexFileCommand
	location string
	sources  []string
}

var _ builder.Command = (*importSourceCommand)(nil)

// Title implements Command.
func (c *importSourceCommand) Title() string {
	return "import " + c.location
}

// Do implements Command.
func (c *importSourceCommand) Do(ctx context.Context, ec *builder.ExecuteContext) builder.ResultStatus {
	index := ec.IndexMap()
	for _, src := range c.sources {
		if ctx.Err() != nil {
			return builder.Cancelled
		}
		f, err := os.Open(src)
		if err != nil {
			ec.Logf("error", "opening %q: %s", src, err)
			return builder.Failed
		}
		id, size, err := ec.ObjectDatabase().Write(f)
		f.Close()
		if err != nil {
			ec.Logf("error", "importing %q: %s", src, err)
			return builder.Failed
		}
		url := contentdb.ContentUrl(c.location)
		if len(c.sources) > 1 {
			url = contentdb.ContentUrl(c.location + "/" + filepath.Base(src))
		}
		index.Set(url, id)
		ec.Logf("info", "imported %q as %s (%d bytes)", src, url, size)
	}
	return builder.Successful
}
