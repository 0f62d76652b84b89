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

// Assetforge builds game assets incrementally against a
// content-addressed store.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maruel/subcommands"
	homedir "github.com/mitchellh/go-homedir"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/gologger"

	"github.com/assetforge/assetforge/asset"
	"github.com/assetforge/assetforge/asset/compiler"
)

// version is stamped by the release build.
var version = "devel"

// commonFlags is embedded by every command run.
type commonFlags struct {
	subcommands.CommandRunBase
	logLevel logging.Level
	storeDir string
}

func (c *commonFlags) init() {
	c.logLevel = logging.Info
	c.Flags.Var(&c.logLevel, "log-level", "Logging level: debug, info, warning or error.")
	c.Flags.StringVar(&c.storeDir, "store", "", "Content store directory. Defaults to ~/.assetforge.")
}

func (c *commonFlags) context(a subcommands.Application, cr subcommands.CommandRun, env subcommands.Env) context.Context {
	ctx := cli.GetContext(a, cr, env)
	return logging.SetLevel(ctx, c.logLevel)
}

func (c *commonFlags) store() (string, error) {
	if c.storeDir != "" {
		return c.storeDir, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Annotate(err, "resolving home directory").Err()
	}
	return filepath.Join(home, ".assetforge"), nil
}

// defaultCodecs is the manifest codec table of the standalone tool.
// Embedders register their own asset types.
func defaultCodecs() *asset.TypeCodecs {
	c := asset.NewTypeCodecs()
	c.Register("raw", func() asset.Asset { return &asset.RawAsset{} })
	return c
}

// defaultRegistry carries no compiler registrations: the standalone
// tool relies on the raw passthrough fallback for source-bearing
// assets.
func defaultRegistry() *compiler.Registry {
	return compiler.NewRegistry()
}

var cmdVersion = &subcommands.Command{
	UsageLine: "version",
	ShortDesc: "prints the tool version",
	CommandRun: func() subcommands.CommandRun {
		return &versionRun{}
	},
}

type versionRun struct {
	subcommands.CommandRunBase
}

func (c *versionRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	fmt.Printf("assetforge %s\n", version)
	return 0
}

var application = &cli.Application{
	Name:  "assetforge",
	Title: "Incremental asset build engine",
	Context: func(ctx context.Context) context.Context {
		return gologger.StdConfig.Use(ctx)
	},
	Commands: []*subcommands.Command{
		cmdBuild,
		cmdIndex,
		cmdPing,
		cmdWatch,
		cmdVersion,
		subcommands.CmdHelp,
	},
}

func main() {
	os.Exit(subcommands.Run(application, os.Args[1:]))
}
