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

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/logging"

	"github.com/assetforge/assetforge/monitor"
)

var cmdPing = &subcommands.Command{
	UsageLine: "ping ws://host:port/path",
	ShortDesc: "round-trips a build monitor endpoint",
	CommandRun: func() subcommands.CommandRun {
		c := &pingRun{}
		c.commonFlags.init()
		return c
	},
}

type pingRun struct {
	commonFlags
}

func (c *pingRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := c.context(a, c, env)
	if len(args) != 1 {
		logging.Errorf(ctx, "expected exactly one ws:// endpoint argument")
		return 1
	}

	client, err := monitor.Dial(ctx, args[0])
	if err != nil {
		logging.Errorf(ctx, "%s", err)
		return 1
	}
	defer client.Close(ctx)

	start := clock.Now(ctx)
	reply, err := client.Ping(ctx, 1)
	if err != nil {
		logging.Errorf(ctx, "%s", err)
		return 1
	}
	fmt.Printf("pong %d in %s\n", reply, clock.Since(ctx, start))
	return 0
}
