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

// ResultStatus is the outcome of a command or build step.
type ResultStatus int

const (
	// NotProcessed means the unit never ran.
	NotProcessed ResultStatus = iota
	// Successful means the unit ran to completion and its outputs were
	// committed.
	Successful
	// Failed means the unit ran and reported failure; nothing it wrote
	// reached the durable store.
	Failed
	// Cancelled means the unit observed build-wide cancellation.
	Cancelled
	// NotTriggeredPrerequisiteFailed means the unit was skipped because a
	// step it depends on did not succeed.
	NotTriggeredPrerequisiteFailed
)

// Succeeded reports whether the unit completed successfully.
func (s ResultStatus) Succeeded() bool {
	return s == Successful
}

// String returns the stable name used in results and telemetry.
func (s ResultStatus) String() string {
	switch s {
	case NotProcessed:
		return "NotProcessed"
	case Successful:
		return "Successful"
	case Failed:
		return "Failed"
	case Cancelled:
		return "Cancelled"
	case NotTriggeredPrerequisiteFailed:
		return "NotTriggeredPrerequisiteFailed"
	}
	return "Unknown"
}

// worst returns the more severe of two statuses for aggregation, where
// severity orders Failed > Cancelled > NotTriggeredPrerequisiteFailed >
// NotProcessed > Successful.
func worst(a, b ResultStatus) ResultStatus {
	rank := func(s ResultStatus) int {
		switch s {
		case Failed:
			return 4
		case Cancelled:
			return 3
		case NotTriggeredPrerequisiteFailed:
			return 2
		case NotProcessed:
			return 1
		}
		return 0
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}
