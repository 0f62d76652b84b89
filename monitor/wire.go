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

import "time"

// Envelope kinds carried over the websocket transport.
const (
	kindPing              = "ping"
	kindPong              = "pong"
	kindStartBuild        = "start_build"
	kindEndBuild          = "end_build"
	kindBuildStepInfo     = "build_step_info"
	kindCommandLog        = "command_log"
	kindMicrothreadEvents = "microthread_events"
	kindBuildStepResult   = "build_step_result"
)

// envelope is one JSON message on the wire. Only the fields relevant to
// Kind are populated.
type envelope struct {
	Kind string `json:"kind"`

	// Seq correlates a pong with its ping.
	Seq   int64 `json:"seq,omitempty"`
	Value int   `json:"value,omitempty"`

	BuildId       string                    `json:"build_id,omitempty"`
	ExecutionId   int64                     `json:"execution_id,omitempty"`
	Description   string                    `json:"description,omitempty"`
	MicrothreadId int64                     `json:"microthread_id,omitempty"`
	Status        string                    `json:"status,omitempty"`
	StartTime     time.Time                 `json:"start_time,omitempty"`
	EndTime       time.Time                 `json:"end_time,omitempty"`
	Now           time.Time                 `json:"now,omitempty"`
	Messages      []LogMessage              `json:"messages,omitempty"`
	Notifications []MicrothreadNotification `json:"notifications,omitempty"`
}
