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

// Package builder executes build step graphs.
//
// Execution follows a cooperative model: every command runs as a
// "microthread" — a goroutine admitted through a bounded semaphore —
// that yields at I/O and at dependency barriers. Each command that
// touches the content index does so through a BuildTransaction mounted
// for exactly the duration of the command; the durable index only ever
// changes through the serialized commit that follows a Successful
// status.
package builder

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/logging"

	"github.com/assetforge/assetforge/contentdb"
	"github.com/assetforge/assetforge/monitor"
)

// Options configures a Builder.
type Options struct {
	// BuildId identifies the build in results and telemetry. A random id
	// is generated when empty.
	BuildId string

	// IndexMap is the durable content index. May be nil, in which case
	// nothing is durably committed (useful for dry runs and tests).
	IndexMap contentdb.IndexMap

	// ObjectDatabase stores object payloads. May be nil.
	ObjectDatabase *contentdb.FileObjectDatabase

	// Monitor receives build telemetry. Defaults to monitor.Nop.
	Monitor monitor.BuildMonitor

	// MaxParallelism bounds concurrently executing commands. Defaults to
	// runtime.NumCPU().
	MaxParallelism int
}

// Builder schedules and executes a build step graph.
type Builder struct {
	opts Options
}

// New returns a Builder with defaults applied.
func New(opts Options) *Builder {
	if opts.BuildId == "" {
		opts.BuildId = uuid.NewString()
	}
	if opts.Monitor == nil {
		opts.Monitor = monitor.Nop{}
	}
	if opts.MaxParallelism <= 0 {
		opts.MaxParallelism = runtime.NumCPU()
	}
	return &Builder{opts: opts}
}

// Run executes the step graph rooted at root and reports per-step
// statuses. Cancelling ctx cancels the build: in-flight commands finish
// as Cancelled, nothing partial reaches the durable index.
func (b *Builder) Run(ctx context.Context, root BuildStep) *BuildResult {
	start := clock.Now(ctx)
	r := &runner{
		buildId:     b.opts.BuildId,
		index:       b.opts.IndexMap,
		odb:         b.opts.ObjectDatabase,
		mon:         b.opts.Monitor,
		parallelism: b.opts.MaxParallelism,
		sem:         semaphore.NewWeighted(int64(b.opts.MaxParallelism)),
		start:       start,
		nowFn:       func() time.Time { return clock.Now(ctx) },
	}

	r.mon.StartBuild(r.buildId, start)
	rootGroup := NewOutputObjectGroup()
	r.runStep(ctx, root, nil, rootGroup)
	if r.index != nil {
		if err := r.index.WaitPendingOperations(ctx); err != nil {
			logging.Errorf(ctx, "build %s: draining content index writes: %s", r.buildId, err)
		}
	}
	r.mon.EndBuild(r.buildId, clock.Now(ctx))

	res := collectResult(b.opts.BuildId, root)
	logging.Infof(ctx, "build %s finished: %s (%d ok, %d failed, %d cancelled, %d skipped)",
		r.buildId, res.Status, res.Succeeded, res.Failed, res.Cancelled, res.Skipped)
	return res
}

// merger is implemented by index maps that can apply a whole entry set
// atomically.
type merger interface {
	Merge(ctx context.Context, entries []contentdb.Entry) error
}

// runner is the per-build execution state shared by all microthreads.
type runner struct {
	buildId     string
	index       contentdb.IndexMap
	odb         *contentdb.FileObjectDatabase
	mon         monitor.BuildMonitor
	parallelism int
	sem         *semaphore.Weighted
	start       time.Time
	nowFn       func() time.Time

	commitMu sync.Mutex
	mtSeq    atomic.Int64
	execSeq  atomic.Int64
}

func (r *runner) now() time.Time {
	return r.nowFn()
}

// runStep waits for the step's data dependencies and then executes it.
// It is the only place a step's final status is assigned.
func (r *runner) runStep(ctx context.Context, s BuildStep, in []*OutputObjectGroup, out *OutputObjectGroup) ResultStatus {
	st := s.state()

	inputs := st.snapshotInputs()
	for _, input := range inputs {
		select {
		case <-input.step.Done():
		case <-ctx.Done():
			st.finish(Cancelled)
			return Cancelled
		}
	}
	for _, input := range inputs {
		if !input.step.Status().Succeeded() {
			st.finish(NotTriggeredPrerequisiteFailed)
			return NotTriggeredPrerequisiteFailed
		}
	}
	if len(inputs) > 0 {
		merged := make([]*OutputObjectGroup, 0, len(inputs)+len(in))
		for _, input := range inputs {
			if input.group != nil {
				merged = append(merged, input.group)
			}
		}
		in = append(merged, in...)
	}

	status := s.exec(ctx, r, in, out)
	st.finish(status)
	return status
}

// runListStep executes a list's children per its mode, implementing the
// WaitBuildStep barrier for parallel lists.
func (r *runner) runListStep(ctx context.Context, s *ListBuildStep, in []*OutputObjectGroup) ResultStatus {
	visible := append([]*OutputObjectGroup(nil), in...)
	agg := Successful

	// fold makes a finished child's accumulated outputs visible to the
	// children scheduled after it.
	fold := func(child BuildStep) {
		if list, ok := child.(interface{ OutputGroup() *OutputObjectGroup }); ok {
			if g := list.OutputGroup(); g != nil && g.Len() > 0 {
				visible = append([]*OutputObjectGroup{g}, visible...)
			}
		}
	}

	switch s.mode {
	case Sequential:
		for _, child := range s.children {
			status := r.runStep(ctx, child, visible, s.group)
			agg = worst(agg, status)
			fold(child)
		}

	case Parallel:
		var wg sync.WaitGroup
		var mu sync.Mutex
		inflight := make([]BuildStep, 0, len(s.children))

		barrier := func() {
			wg.Wait()
			mu.Lock()
			for _, child := range inflight {
				agg = worst(agg, child.Status())
				fold(child)
			}
			inflight = inflight[:0]
			mu.Unlock()
		}

		for _, child := range s.children {
			if w, ok := child.(*WaitBuildStep); ok {
				barrier()
				w.state().finish(Successful)
				continue
			}
			child := child
			snapshot := append([]*OutputObjectGroup(nil), visible...)
			mu.Lock()
			inflight = append(inflight, child)
			mu.Unlock()
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.runStep(ctx, child, snapshot, s.group)
			}()
		}
		barrier()
	}

	return agg
}

// runCommandStep admits the command through the microthread pool, runs
// it with its lifecycle hooks, commits its outputs on success and
// reports telemetry.
func (r *runner) runCommandStep(ctx context.Context, s *CommandBuildStep, in []*OutputObjectGroup, out *OutputObjectGroup) ResultStatus {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return Cancelled
	}
	defer r.sem.Release(1)

	mtid := r.mtSeq.Add(1)
	execId := r.execSeq.Add(1)
	ec := &ExecuteContext{
		run:           r,
		microthreadId: mtid,
		// The pool has no stable OS thread binding; the slot index stands
		// in for the thread id in telemetry.
		threadId: int32(mtid % int64(r.parallelism)),
		inGroups: in,
		outGroup: out,
	}

	r.mon.SendBuildStepInfo(r.buildId, execId, s.Title(), r.start)
	r.mon.SendMicrothreadEvents(r.buildId, r.start, r.now(), []monitor.MicrothreadNotification{{
		ThreadId:      ec.threadId,
		MicrothreadId: mtid,
		JobId:         execId,
		Time:          r.now(),
		Type:          monitor.JobStarted,
	}})

	status := r.runCommand(ctx, s.cmd, ec)
	// A stale mounted transaction must never survive into the slot's
	// next command, however the command exited.
	ec.UnmountTransaction()

	if status.Succeeded() {
		if entries := ec.producedEntries(); len(entries) > 0 {
			if err := r.commit(ctx, entries); err != nil {
				logging.Errorf(ctx, "build %s: committing outputs of %q: %s", r.buildId, s.Title(), err)
				status = Failed
			}
		}
	}

	if logs := ec.logMessages(); len(logs) > 0 {
		r.mon.SendCommandLog(r.buildId, r.start, mtid, logs)
	}
	r.mon.SendBuildStepResult(r.buildId, r.start, mtid, status.String())
	r.mon.SendMicrothreadEvents(r.buildId, r.start, r.now(), []monitor.MicrothreadNotification{{
		ThreadId:      ec.threadId,
		MicrothreadId: mtid,
		JobId:         execId,
		Time:          r.now(),
		Type:          monitor.JobEnded,
	}})
	return status
}

// runCommand drives one command through its lifecycle. PostCommand runs
// on every exit path; a panic escaping Do becomes a Failed status.
func (r *runner) runCommand(ctx context.Context, cmd Command, ec *ExecuteContext) (status ResultStatus) {
	status = Failed
	if h, ok := cmd.(CommandHooks); ok {
		h.PreCommand(ctx, ec)
		defer func() { h.PostCommand(ctx, ec, status) }()
	}
	defer func() {
		if p := recover(); p != nil {
			logging.Errorf(ctx, "build %s: command %q panicked: %v", r.buildId, cmd.Title(), p)
			status = Failed
		}
	}()
	status = cmd.Do(ctx, ec)
	if status == Successful && ctx.Err() != nil {
		// The command raced build cancellation; its outputs must not land.
		status = Cancelled
	}
	return status
}

// commit merges a successful command's entries into the durable index,
// all-or-nothing, serialized across the whole build.
func (r *runner) commit(ctx context.Context, entries []contentdb.Entry) error {
	if r.index == nil {
		return nil
	}
	r.commitMu.Lock()
	defer r.commitMu.Unlock()
	if m, ok := r.index.(merger); ok {
		return m.Merge(ctx, entries)
	}
	for _, e := range entries {
		r.index.Set(e.Url, e.Id)
	}
	return r.index.WaitPendingOperations(ctx)
}
