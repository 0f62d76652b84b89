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

package builder

import (
	"context"
	"sync"
)

// BuildStep is a schedulable node of the build graph. Step types are
// provided by this package; composite asset steps embed ListBuildStep.
type BuildStep interface {
	// Title is a short human description of the step.
	Title() string

	// Status returns the step's final status, or NotProcessed while the
	// step has not finished.
	Status() ResultStatus

	// Done is closed when the step has finished and Status is final.
	Done() <-chan struct{}

	// Walk visits this step and, for composites, its children.
	Walk(f func(BuildStep))

	exec(ctx context.Context, r *runner, in []*OutputObjectGroup, out *OutputObjectGroup) ResultStatus
	state() *stepState
}

// stepInput is a data dependency edge: wait for Step, then expose Group
// to this step's commands.
type stepInput struct {
	step  BuildStep
	group *OutputObjectGroup
}

// stepState is the shared bookkeeping embedded in every step type.
type stepState struct {
	mu     sync.Mutex
	status ResultStatus
	done   chan struct{}
	inputs []stepInput
}

func newStepState() stepState {
	return stepState{done: make(chan struct{})}
}

// Status returns the step's final status (NotProcessed until finished).
func (s *stepState) Status() ResultStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Done is closed once the step finished.
func (s *stepState) Done() <-chan struct{} {
	return s.done
}

func (s *stepState) finish(status ResultStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	close(s.done)
}

func (s *stepState) state() *stepState { return s }

// AddInput records a data dependency: this step will not start before
// dep finished successfully, and dep's output group becomes visible to
// this step's commands. If dep does not succeed, this step finishes as
// NotTriggeredPrerequisiteFailed without running.
func (s *stepState) AddInput(dep BuildStep, group *OutputObjectGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, stepInput{step: dep, group: group})
}

// snapshotInputs returns the recorded data dependencies.
func (s *stepState) snapshotInputs() []stepInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]stepInput, len(s.inputs))
	copy(out, s.inputs)
	return out
}

// CommandBuildStep schedules one Command as a microthread.
type CommandBuildStep struct {
	stepState
	cmd Command
}

var _ BuildStep = (*CommandBuildStep)(nil)

// NewCommandBuildStep wraps cmd into a step.
func NewCommandBuildStep(cmd Command) *CommandBuildStep {
	return &CommandBuildStep{stepState: newStepState(), cmd: cmd}
}

// Title implements BuildStep.
func (s *CommandBuildStep) Title() string { return s.cmd.Title() }

// Command returns the wrapped command.
func (s *CommandBuildStep) Command() Command { return s.cmd }

// Walk implements BuildStep.
func (s *CommandBuildStep) Walk(f func(BuildStep)) { f(s) }

func (s *CommandBuildStep) exec(ctx context.Context, r *runner, in []*OutputObjectGroup, out *OutputObjectGroup) ResultStatus {
	return r.runCommandStep(ctx, s, in, out)
}

// ListMode selects how a ListBuildStep schedules its children.
type ListMode int

const (
	// Sequential runs children one after another in list order; each
	// child sees the outputs of every child before it.
	Sequential ListMode = iota
	// Parallel enqueues children concurrently; ordering between them
	// requires data dependency edges or a WaitBuildStep barrier.
	Parallel
)

// ListBuildStep composes child steps with its own output object group:
// successful commands of descendant CommandBuildSteps register into the
// nearest enclosing list's group.
type ListBuildStep struct {
	stepState
	title    string
	mode     ListMode
	children []BuildStep
	group    *OutputObjectGroup
}

var _ BuildStep = (*ListBuildStep)(nil)

// NewListBuildStep returns an empty list step.
func NewListBuildStep(title string, mode ListMode, children ...BuildStep) *ListBuildStep {
	return &ListBuildStep{
		stepState: newStepState(),
		title:     title,
		mode:      mode,
		children:  children,
		group:     NewOutputObjectGroup(),
	}
}

// Title implements BuildStep.
func (s *ListBuildStep) Title() string { return s.title }

// Add appends child steps. Must not be called after the build started.
func (s *ListBuildStep) Add(children ...BuildStep) {
	s.children = append(s.children, children...)
}

// Steps returns the child steps in list order.
func (s *ListBuildStep) Steps() []BuildStep { return s.children }

// OutputGroup is where the step's successful outputs accumulate; wire it
// into dependents via AddInput.
func (s *ListBuildStep) OutputGroup() *OutputObjectGroup { return s.group }

// Walk implements BuildStep.
func (s *ListBuildStep) Walk(f func(BuildStep)) {
	f(s)
	for _, c := range s.children {
		c.Walk(f)
	}
}

func (s *ListBuildStep) exec(ctx context.Context, r *runner, in []*OutputObjectGroup, out *OutputObjectGroup) ResultStatus {
	return r.runListStep(ctx, s, in)
}

// WaitBuildStep is a barrier: inside a Parallel list it forces every
// previously enqueued sibling to finish before later siblings start. It
// performs no work of its own.
type WaitBuildStep struct {
	stepState
}

var _ BuildStep = (*WaitBuildStep)(nil)

// NewWaitBuildStep returns a barrier step.
func NewWaitBuildStep() *WaitBuildStep {
	return &WaitBuildStep{stepState: newStepState()}
}

// Title implements BuildStep.
func (s *WaitBuildStep) Title() string { return "wait" }

// Walk implements BuildStep.
func (s *WaitBuildStep) Walk(f func(BuildStep)) { f(s) }

func (s *WaitBuildStep) exec(ctx context.Context, r *runner, in []*OutputObjectGroup, out *OutputObjectGroup) ResultStatus {
	// The enclosing list implements the barrier; standalone it is a no-op.
	return Successful
}
