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
	"fmt"
	"sync"

	"go.chromium.org/luci/common/errors"

	"github.com/assetforge/assetforge/contentdb"
	"github.com/assetforge/assetforge/monitor"
)

// ErrNoTransaction is panicked when a command asks for the transactional
// index map without having mounted a transaction first. That is a
// programming error in the command, not a runtime condition.
var ErrNoTransaction = errors.New("builder: no build transaction mounted on this execution context")

// ExecuteContext is the per-microthread execution environment of one
// command run. It carries the mounted transaction, the output groups
// the command may observe, output registration, and the command's log
// stream.
type ExecuteContext struct {
	run *runner

	microthreadId int64
	threadId      int32

	// inGroups are outputs of dependency/sibling steps visible to this
	// command, in lookup order. outGroup is the owning step's group where
	// this command's successful outputs are registered.
	inGroups []*OutputObjectGroup
	outGroup *OutputObjectGroup

	mu       sync.Mutex
	txn      *BuildTransaction
	produced []contentdb.Entry
	logs     []monitor.LogMessage
}

// BuildId identifies the enclosing build.
func (ec *ExecuteContext) BuildId() string {
	return ec.run.buildId
}

// MicrothreadId identifies this execution slot within the build.
func (ec *ExecuteContext) MicrothreadId() int64 {
	return ec.microthreadId
}

// BaseIndexMap returns the durable content index the build reads
// through. May be nil for builds running without a durable store.
func (ec *ExecuteContext) BaseIndexMap() contentdb.IndexMap {
	return ec.run.index
}

// ObjectDatabase returns the object payload store, or nil if the build
// runs without one.
func (ec *ExecuteContext) ObjectDatabase() *contentdb.FileObjectDatabase {
	return ec.run.odb
}

// OutputGroups returns the output object groups visible to this command:
// the owning step's own group first, then dependency groups in order.
func (ec *ExecuteContext) OutputGroups() []*OutputObjectGroup {
	groups := make([]*OutputObjectGroup, 0, len(ec.inGroups)+1)
	if ec.outGroup != nil {
		groups = append(groups, ec.outGroup)
	}
	return append(groups, ec.inGroups...)
}

// MountTransaction scopes txn to this execution slot.
func (ec *ExecuteContext) MountTransaction(txn *BuildTransaction) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.txn = txn
}

// UnmountTransaction releases the mounted transaction. Safe to call when
// nothing is mounted.
func (ec *ExecuteContext) UnmountTransaction() {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.txn = nil
}

// IndexMap returns the mounted transaction's index map view. Panics with
// ErrNoTransaction if no transaction is mounted.
func (ec *ExecuteContext) IndexMap() contentdb.IndexMap {
	ec.mu.Lock()
	txn := ec.txn
	ec.mu.Unlock()
	if txn == nil {
		panic(ErrNoTransaction)
	}
	return txn.IndexMap()
}

// registerOutputs publishes entries into the owning step's output group
// and queues them for the durable commit.
func (ec *ExecuteContext) registerOutputs(entries []contentdb.Entry) {
	if ec.outGroup != nil {
		for _, e := range entries {
			ec.outGroup.Register(e.Url, e.Id)
		}
	}
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.produced = append(ec.produced, entries...)
}

// producedEntries returns what the command registered for commit.
func (ec *ExecuteContext) producedEntries() []contentdb.Entry {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.produced
}

// Logf appends one line to the command's log stream; the stream is
// forwarded to the build monitor when the command finishes.
func (ec *ExecuteContext) Logf(level, format string, args ...any) {
	msg := monitor.LogMessage{
		Time:  ec.run.now(),
		Level: level,
		Text:  fmt.Sprintf(format, args...),
	}
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.logs = append(ec.logs, msg)
}

// logMessages snapshots the command's log stream.
func (ec *ExecuteContext) logMessages() []monitor.LogMessage {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	out := make([]monitor.LogMessage, len(ec.logs))
	copy(out, ec.logs)
	return out
}
