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
	"sync"
	"time"
)

// Event is one notification captured by a Recorder.
type Event struct {
	Kind          string
	BuildId       string
	ExecutionId   int64
	Description   string
	MicrothreadId int64
	Status        string
	StartTime     time.Time
	EndTime       time.Time
	Now           time.Time
	Messages      []LogMessage
	Notifications []MicrothreadNotification
}

// Recorder is a BuildMonitor keeping everything it receives in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

var _ BuildMonitor = (*Recorder)(nil)

// Events returns a snapshot of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// EventsOfKind returns recorded events with the given kind.
func (r *Recorder) EventsOfKind(kind string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Ping implements BuildMonitor.
func (r *Recorder) Ping(ctx context.Context, value int) (int, error) {
	r.record(Event{Kind: kindPing})
	return value, nil
}

// StartBuild implements BuildMonitor.
func (r *Recorder) StartBuild(buildId string, startTime time.Time) {
	r.record(Event{Kind: kindStartBuild, BuildId: buildId, StartTime: startTime})
}

// EndBuild implements BuildMonitor.
func (r *Recorder) EndBuild(buildId string, endTime time.Time) {
	r.record(Event{Kind: kindEndBuild, BuildId: buildId, EndTime: endTime})
}

// SendBuildStepInfo implements BuildMonitor.
func (r *Recorder) SendBuildStepInfo(buildId string, executionId int64, description string, startTime time.Time) {
	r.record(Event{Kind: kindBuildStepInfo, BuildId: buildId, ExecutionId: executionId, Description: description, StartTime: startTime})
}

// SendCommandLog implements BuildMonitor.
func (r *Recorder) SendCommandLog(buildId string, startTime time.Time, microthreadId int64, messages []LogMessage) {
	r.record(Event{Kind: kindCommandLog, BuildId: buildId, StartTime: startTime, MicrothreadId: microthreadId, Messages: messages})
}

// SendMicrothreadEvents implements BuildMonitor.
func (r *Recorder) SendMicrothreadEvents(buildId string, startTime, now time.Time, notifications []MicrothreadNotification) {
	r.record(Event{Kind: kindMicrothreadEvents, BuildId: buildId, StartTime: startTime, Now: now, Notifications: notifications})
}

// SendBuildStepResult implements BuildMonitor.
func (r *Recorder) SendBuildStepResult(buildId string, startTime time.Time, microthreadId int64, status string) {
	r.record(Event{Kind: kindBuildStepResult, BuildId: buildId, StartTime: startTime, MicrothreadId: microthreadId, Status: status})
}

// Kind name accessors for callers outside the package (the wire kinds
// themselves stay private).

// KindStartBuild is the Event.Kind recorded for StartBuild.
const KindStartBuild = kindStartBuild

// KindEndBuild is the Event.Kind recorded for EndBuild.
const KindEndBuild = kindEndBuild

// KindBuildStepInfo is the Event.Kind recorded for SendBuildStepInfo.
const KindBuildStepInfo = kindBuildStepInfo

// KindCommandLog is the Event.Kind recorded for SendCommandLog.
const KindCommandLog = kindCommandLog

// KindMicrothreadEvents is the Event.Kind recorded for SendMicrothreadEvents.
const KindMicrothreadEvents = kindMicrothreadEvents

// KindBuildStepResult is the Event.Kind recorded for SendBuildStepResult.
const KindBuildStepResult = kindBuildStepResult
