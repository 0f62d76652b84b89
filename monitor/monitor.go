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

// Package monitor defines the remote build monitor protocol: a push
// stream of advisory notifications letting a coordinator observe a
// distributed build without ever blocking it.
//
// Everything except Ping is one-way and at-most-once. Lost or duplicated
// notifications must not affect build correctness; the builder treats
// the monitor purely as telemetry.
package monitor

import (
	"context"
	"time"
)

// EventType is the kind of a microthread scheduling event.
type EventType int8

const (
	// JobStarted marks a microthread picking up a job.
	JobStarted EventType = iota
	// JobEnded marks a microthread finishing a job.
	JobEnded
)

// String returns the wire name of the event type.
func (t EventType) String() string {
	switch t {
	case JobStarted:
		return "job_started"
	case JobEnded:
		return "job_ended"
	}
	return "unknown"
}

// MicrothreadNotification is one scheduling telemetry record. It is
// observational only: nothing in the build engine keys correctness off
// of it.
type MicrothreadNotification struct {
	ThreadId      int32     `json:"thread_id"`
	MicrothreadId int64     `json:"microthread_id"`
	JobId         int64     `json:"job_id"`
	Time          time.Time `json:"time"`
	Type          EventType `json:"type"`
}

// LogMessage is one timestamped log line streamed for an executing unit.
type LogMessage struct {
	Time  time.Time `json:"time"`
	Level string    `json:"level"`
	Text  string    `json:"text"`
}

// BuildMonitor is the remote monitoring contract.
//
// Ping is the only two-way call. All Send* and Start/End calls are
// fire-and-forget: implementations must not block the caller on
// delivery and must swallow (at most locally log) delivery failures.
type BuildMonitor interface {
	// Ping round-trips a value to check liveness.
	Ping(ctx context.Context, value int) (int, error)

	// StartBuild announces the beginning of a build's remote lifetime.
	StartBuild(buildId string, startTime time.Time)

	// EndBuild announces the end of a build's remote lifetime.
	EndBuild(buildId string, endTime time.Time)

	// SendBuildStepInfo announces a step about to run.
	SendBuildStepInfo(buildId string, executionId int64, description string, startTime time.Time)

	// SendCommandLog streams log messages for one executing unit.
	SendCommandLog(buildId string, startTime time.Time, microthreadId int64, messages []LogMessage)

	// SendMicrothreadEvents delivers batched scheduling telemetry.
	SendMicrothreadEvents(buildId string, startTime, now time.Time, notifications []MicrothreadNotification)

	// SendBuildStepResult delivers the final status of one step.
	SendBuildStepResult(buildId string, startTime time.Time, microthreadId int64, status string)
}

// Nop is a BuildMonitor that drops everything.
type Nop struct{}

var _ BuildMonitor = Nop{}

// Ping implements BuildMonitor.
func (Nop) Ping(ctx context.Context, value int) (int, error) { return value, nil }

// StartBuild implements BuildMonitor.
func (Nop) StartBuild(buildId string, startTime time.Time) {}

// EndBuild implements BuildMonitor.
func (Nop) EndBuild(buildId string, endTime time.Time) {}

// SendBuildStepInfo implements BuildMonitor.
func (Nop) SendBuildStepInfo(buildId string, executionId int64, description string, startTime time.Time) {
}

// SendCommandLog implements BuildMonitor.
func (Nop) SendCommandLog(buildId string, startTime time.Time, microthreadId int64, messages []LogMessage) {
}

// SendMicrothreadEvents implements BuildMonitor.
func (Nop) SendMicrothreadEvents(buildId string, startTime, now time.Time, notifications []MicrothreadNotification) {
}

// SendBuildStepResult implements BuildMonitor.
func (Nop) SendBuildStepResult(buildId string, startTime time.Time, microthreadId int64, status string) {
}
