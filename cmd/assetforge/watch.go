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
	"context"
	"net/http"
	"time"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/logging"

	"github.com/assetforge/assetforge/monitor"
)

var cmdWatch = &subcommands.Command{
	UsageLine: "watch <options>",
	ShortDesc: "serves a build monitor endpoint and prints what it receives",
	LongDesc: `Serves a build monitor endpoint and prints what it receives.

Point workers at it with "build -monitor ws://host:port/".`,
	CommandRun: func() subcommands.CommandRun {
		c := &watchRun{}
		c.commonFlags.init()
		c.Flags.StringVar(&c.addr, "addr", ":8466", "Address to listen on.")
		return c
	},
}

type watchRun struct {
	commonFlags
	addr string
}

func (c *watchRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := c.context(a, c, env)
	if len(args) != 0 {
		logging.Errorf(ctx, "unexpected arguments")
		return 1
	}

	logging.Infof(ctx, "build monitor listening on %s", c.addr)
	srv := &http.Server{
		Addr:    c.addr,
		Handler: &monitor.Server{Target: &logMonitor{ctx: ctx}},
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Errorf(ctx, "%s", err)
		return 1
	}
	return 0
}

// logMonitor prints every notification it receives.
type logMonitor struct {
	ctx context.Context
}

var _ monitor.BuildMonitor = (*logMonitor)(nil)

func (m *logMonitor) Ping(ctx context.Context, value int) (int, error) {
	logging.Infof(m.ctx, "ping %d", value)
	return value, nil
}

func (m *logMonitor) StartBuild(buildId string, startTime time.Time) {
	logging.Infof(m.ctx, "[%s] build started", buildId)
}

func (m *logMonitor) EndBuild(buildId string, endTime time.Time) {
	logging.Infof(m.ctx, "[%s] build ended", buildId)
}

func (m *logMonitor) SendBuildStepInfo(buildId string, executionId int64, description string, startTime time.Time) {
	logging.Infof(m.ctx, "[%s] step %d: %s", buildId, executionId, description)
}

func (m *logMonitor) SendCommandLog(buildId string, startTime time.Time, microthreadId int64, messages []monitor.LogMessage) {
	for _, msg := range messages {
		logging.Infof(m.ctx, "[%s] mt %d: %s: %s", buildId, microthreadId, msg.Level, msg.Text)
	}
}

func (m *logMonitor) SendMicrothreadEvents(buildId string, startTime, now time.Time, notifications []monitor.MicrothreadNotification) {
	for _, n := range notifications {
		logging.Debugf(m.ctx, "[%s] mt %d job %d %s", buildId, n.MicrothreadId, n.JobId, n.Type)
	}
}

func (m *logMonitor) SendBuildStepResult(buildId string, startTime time.Time, microthreadId int64, status string) {
	logging.Infof(m.ctx, "[%s] mt %d finished: %s", buildId, microthreadId, status)
}
