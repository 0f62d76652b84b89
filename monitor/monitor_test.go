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

package monitor

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.chromium.org/luci/common/logging/gologger"
	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *ftt.Test, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.Loosely(t, cond(), should.BeTrue)
}

func TestMonitorRoundTrip(t *testing.T) {
	t.Parallel()

	ftt.Run("websocket monitor", t, func(t *ftt.Test) {
		ctx := gologger.StdConfig.Use(context.Background())

		rec := &Recorder{}
		srv := httptest.NewServer(&Server{Target: rec})
		defer srv.Close()
		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

		client, err := Dial(ctx, wsURL)
		assert.Loosely(t, err, should.BeNil)
		defer client.Close(ctx)

		t.Run("ping round trips", func(t *ftt.Test) {
			got, err := client.Ping(ctx, 42)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, got, should.Equal(42))
		})

		t.Run("one-way calls arrive", func(t *ftt.Test) {
			start := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

			client.StartBuild("build-1", start)
			client.SendBuildStepInfo("build-1", 7, "compile model tree", start)
			client.SendCommandLog("build-1", start, 3, []LogMessage{
				{Time: start, Level: "info", Text: "compiling"},
			})
			client.SendMicrothreadEvents("build-1", start, start.Add(time.Second), []MicrothreadNotification{
				{ThreadId: 1, MicrothreadId: 3, JobId: 7, Time: start, Type: JobStarted},
				{ThreadId: 1, MicrothreadId: 3, JobId: 7, Time: start.Add(time.Second), Type: JobEnded},
			})
			client.SendBuildStepResult("build-1", start, 3, "Successful")
			client.EndBuild("build-1", start.Add(2*time.Second))

			waitFor(t, func() bool { return len(rec.EventsOfKind(KindEndBuild)) == 1 })

			steps := rec.EventsOfKind(KindBuildStepInfo)
			assert.Loosely(t, steps, should.HaveLength(1))
			assert.Loosely(t, steps[0].ExecutionId, should.Equal(7))
			assert.Loosely(t, steps[0].Description, should.Equal("compile model tree"))

			events := rec.EventsOfKind(KindMicrothreadEvents)
			assert.Loosely(t, events, should.HaveLength(1))
			assert.Loosely(t, events[0].Notifications, should.HaveLength(2))
			assert.Loosely(t, events[0].Notifications[0].Type, should.Equal(JobStarted))
			assert.Loosely(t, events[0].Notifications[1].Type, should.Equal(JobEnded))

			results := rec.EventsOfKind(KindBuildStepResult)
			assert.Loosely(t, results, should.HaveLength(1))
			assert.Loosely(t, results[0].Status, should.Equal("Successful"))
			assert.Loosely(t, results[0].MicrothreadId, should.Equal(3))
		})

		t.Run("dead coordinator never blocks the sender", func(t *ftt.Test) {
			srv.CloseClientConnections()
			// Everything below must return promptly even though nothing is
			// listening anymore; the channel just drops what it cannot send.
			done := make(chan struct{})
			go func() {
				defer close(done)
				for i := 0; i < 10000; i++ {
					client.SendBuildStepInfo("build-1", int64(i), "orphaned", time.Now())
				}
			}()
			select {
			case <-done:
			case <-time.After(10 * time.Second):
				t.Fatalf("one-way sends blocked on a dead coordinator")
			}
		})
	})
}

func TestNop(t *testing.T) {
	t.Parallel()

	ftt.Run("Nop monitor", t, func(t *ftt.Test) {
		var m BuildMonitor = Nop{}
		got, err := m.Ping(context.Background(), 7)
		assert.Loosely(t, err, should.BeNil)
		assert.Loosely(t, got, should.Equal(7))
		m.StartBuild("b", time.Now())
		m.EndBuild("b", time.Now())
	})
}
