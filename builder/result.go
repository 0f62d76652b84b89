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

// StepResult is the final status of one executed command step.
type StepResult struct {
	Title  string
	Status ResultStatus
}

// BuildResult summarizes a finished build. A build with partial errors
// still carries every step's individual outcome: a partial failure is
// never silent.
type BuildResult struct {
	BuildId string

	// Status is the root step's aggregate status.
	Status ResultStatus

	// Steps holds the outcome of every command step, in walk order.
	Steps []StepResult

	// Counts over Steps.
	Succeeded int
	Failed    int
	Cancelled int
	// Skipped counts steps that never ran: not processed, or not
	// triggered because a prerequisite failed.
	Skipped int
}

// collectResult walks the finished step graph into a BuildResult.
func collectResult(buildId string, root BuildStep) *BuildResult {
	res := &BuildResult{BuildId: buildId, Status: root.Status()}
	root.Walk(func(s BuildStep) {
		cs, ok := s.(*CommandBuildStep)
		if !ok {
			return
		}
		status := cs.Status()
		res.Steps = append(res.Steps, StepResult{Title: cs.Title(), Status: status})
		switch status {
		case Successful:
			res.Succeeded++
		case Failed:
			res.Failed++
		case Cancelled:
			res.Cancelled++
		default:
			res.Skipped++
		}
	})
	return res
}
