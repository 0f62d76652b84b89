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

package main

import (
	"fmt"
	"path/filepath"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/logging"

	"github.com/assetforge/assetforge/asset"
	"github.com/assetforge/assetforge/asset/compiler"
	"github.com/assetforge/assetforge/builder"
	"github.com/assetforge/assetforge/contentdb"
	"github.com/assetforge/assetforge/monitor"
)

var cmdBuild = &subcommands.Command{
	UsageLine: "build <options> package.yaml [dependency.yaml ...]",
	ShortDesc: "plans and executes an asset build",
	LongDesc: `Plans and executes an asset build.

The first manifest names the package to build; additional manifests are
loaded into the session so package dependencies resolve. Compiled
outputs land in the content store; a second build of unchanged assets
reuses them.`,
	CommandRun: func() subcommands.CommandRun {
		c := &buildRun{}
		c.commonFlags.init()
		c.Flags.StringVar(&c.monitorURL, "monitor", "", "ws:// endpoint of a remote build monitor.")
		c.Flags.IntVar(&c.parallelism, "parallelism", 0, "Max concurrently executing commands. Defaults to the CPU count.")
		c.Flags.BoolVar(&c.forTools, "for-tools", false, "Compile for authoring tools instead of the runtime.")
		return c
	},
}

type buildRun struct {
	commonFlags
	monitorURL  string
	parallelism int
	forTools    bool
}

func (c *buildRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := c.context(a, c, env)
	if len(args) == 0 {
		logging.Errorf(ctx, "expected at least one package manifest path")
		return 1
	}

	codecs := defaultCodecs()
	session := asset.NewPackageSession()
	var root *asset.Package
	for i, path := range args {
		pkg, err := asset.LoadPackageFile(path, codecs)
		if err != nil {
			logging.Errorf(ctx, "%s", err)
			return 1
		}
		if err := session.AddPackage(pkg); err != nil {
			logging.Errorf(ctx, "%s", err)
			return 1
		}
		if i == 0 {
			root = pkg
		}
	}

	kind := compiler.RuntimeContext
	if c.forTools {
		kind = compiler.ToolContext
	}
	mgr := compiler.NewBuildDependencyManager(session, defaultRegistry(), kind)
	plan := mgr.Plan(ctx, root)
	for _, w := range plan.Warnings {
		logging.Warningf(ctx, "%s", w)
	}
	for _, e := range plan.Errors {
		logging.Errorf(ctx, "%s", e)
	}
	if len(plan.BuildSteps) == 0 {
		logging.Infof(ctx, "nothing to build")
		if plan.HasErrors() {
			return 1
		}
		return 0
	}

	store, err := c.store()
	if err != nil {
		logging.Errorf(ctx, "%s", err)
		return 1
	}
	index, err := contentdb.OpenBadgerIndexMap(filepath.Join(store, "index"))
	if err != nil {
		logging.Errorf(ctx, "%s", err)
		return 1
	}
	defer index.Close()
	odb, err := contentdb.OpenFileObjectDatabase(filepath.Join(store, "objects"))
	if err != nil {
		logging.Errorf(ctx, "%s", err)
		return 1
	}

	var mon monitor.BuildMonitor = monitor.Nop{}
	if c.monitorURL != "" {
		client, err := monitor.Dial(ctx, c.monitorURL)
		if err != nil {
			// Telemetry only; the build proceeds without it.
			logging.Warningf(ctx, "build monitor unavailable: %s", err)
		} else {
			mon = client
			defer client.Close(ctx)
		}
	}

	b := builder.New(builder.Options{
		IndexMap:       index,
		ObjectDatabase: odb,
		Monitor:        mon,
		MaxParallelism: c.parallelism,
	})
	result := b.Run(ctx, plan.RootStep("build "+root.Meta.Name))

	fmt.Printf("%s: %d succeeded, %d failed, %d cancelled, %d skipped\n",
		result.Status, result.Succeeded, result.Failed, result.Cancelled, result.Skipped)
	if result.Status != builder.Successful || plan.HasErrors() {
		return 1
	}
	return 0
}
