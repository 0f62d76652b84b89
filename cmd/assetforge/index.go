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

	"github.com/assetforge/assetforge/contentdb"
)

var cmdIndex = &subcommands.Command{
	UsageLine: "index <options> [url]",
	ShortDesc: "dumps or queries the content index",
	LongDesc: `Dumps or queries the content index.

Without arguments, prints every URL to ObjectId binding. With a URL
argument (for example content://textures/grass), prints that binding
only.`,
	CommandRun: func() subcommands.CommandRun {
		c := &indexRun{}
		c.commonFlags.init()
		return c
	},
}

type indexRun struct {
	commonFlags
}

func (c *indexRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := c.context(a, c, env)
	if len(args) > 1 {
		logging.Errorf(ctx, "expected at most one url argument")
		return 1
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

	if len(args) == 1 {
		url, err := contentdb.ParseObjectUrl(args[0])
		if err != nil {
			logging.Errorf(ctx, "%s", err)
			return 1
		}
		id, ok := index.TryGetValue(url)
		if !ok {
			logging.Errorf(ctx, "%s is not indexed", url)
			return 1
		}
		fmt.Printf("%s %s\n", url, id)
		return 0
	}

	for _, e := range index.MergedIdMap() {
		fmt.Printf("%s %s\n", e.Url, e.Id)
	}
	return 0
}
