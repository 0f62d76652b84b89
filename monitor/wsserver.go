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
	"net/http"

	"github.com/gorilla/websocket"

	"go.chromium.org/luci/common/logging"
)

// Server is an http.Handler accepting monitor connections from workers
// and forwarding their notifications to a local BuildMonitor (typically
// a recorder or a logger).
type Server struct {
	// Target receives every decoded notification. Required.
	Target BuildMonitor

	upgrader websocket.Upgrader
}

// ServeHTTP upgrades the connection and pumps envelopes until the worker
// goes away. Decode failures terminate only the offending connection.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warningf(ctx, "build monitor: rejecting connection: %s", err)
		return
	}
	defer conn.Close()

	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Debugf(ctx, "build monitor: connection ended: %s", err)
			}
			return
		}
		switch env.Kind {
		case kindPing:
			value, err := s.Target.Ping(ctx, env.Value)
			if err != nil {
				logging.Warningf(ctx, "build monitor: ping handler: %s", err)
				value = env.Value
			}
			if err := conn.WriteJSON(envelope{Kind: kindPong, Seq: env.Seq, Value: value}); err != nil {
				return
			}
		case kindStartBuild:
			s.Target.StartBuild(env.BuildId, env.StartTime)
		case kindEndBuild:
			s.Target.EndBuild(env.BuildId, env.EndTime)
		case kindBuildStepInfo:
			s.Target.SendBuildStepInfo(env.BuildId, env.ExecutionId, env.Description, env.StartTime)
		case kindCommandLog:
			s.Target.SendCommandLog(env.BuildId, env.StartTime, env.MicrothreadId, env.Messages)
		case kindMicrothreadEvents:
			s.Target.SendMicrothreadEvents(env.BuildId, env.StartTime, env.Now, env.Notifications)
		case kindBuildStepResult:
			s.Target.SendBuildStepResult(env.BuildId, env.StartTime, env.MicrothreadId, env.Status)
		default:
			logging.Debugf(ctx, "build monitor: ignoring unknown envelope kind %q", env.Kind)
		}
	}
}
