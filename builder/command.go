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
)

// Command is the atomic schedulable unit of build work.
//
// Do may block on I/O and must observe ctx at its natural yield points;
// a cancelled command reports Cancelled. Commands signal failure through
// the returned status, not by panicking; a panic escaping Do is treated
// as Failed.
type Command interface {
	// Title is a short human description used in logs and telemetry.
	Title() string

	// Do performs the command's work.
	Do(ctx context.Context, ec *ExecuteContext) ResultStatus
}

// CommandHooks is the optional lifecycle surface around Do.
//
// PostCommand is guaranteed to run on every exit path of the command —
// success, failure, cancellation or panic — so state acquired in
// PreCommand (most importantly a mounted transaction) is always
// released before the execution slot runs its next command.
type CommandHooks interface {
	PreCommand(ctx context.Context, ec *ExecuteContext)
	PostCommand(ctx context.Context, ec *ExecuteContext, status ResultStatus)
}

// IndexFileCommand is the embeddable base of commands that read and
// write content index bindings.
//
// PreCommand mounts a fresh BuildTransaction assembled from the durable
// index and the output groups currently visible to the execution slot;
// PostCommand unmounts it and, only on success, registers every binding
// written during execution as an output object of the owning step.
type IndexFileCommand struct {
	txn *BuildTransaction
}

var _ CommandHooks = (*IndexFileCommand)(nil)

// Transaction returns the currently mounted transaction, or nil outside
// the PreCommand/PostCommand window.
func (c *IndexFileCommand) Transaction() *BuildTransaction {
	return c.txn
}

// PreCommand implements CommandHooks.
func (c *IndexFileCommand) PreCommand(ctx context.Context, ec *ExecuteContext) {
	c.txn = NewBuildTransaction(ec.BaseIndexMap(), ec.OutputGroups()...)
	ec.MountTransaction(c.txn)
}

// PostCommand implements CommandHooks.
func (c *IndexFileCommand) PostCommand(ctx context.Context, ec *ExecuteContext, status ResultStatus) {
	txn := c.txn
	c.txn = nil
	ec.UnmountTransaction()
	if txn == nil {
		return
	}
	if status.Succeeded() {
		ec.registerOutputs(txn.TransactionIdMap())
	}
	// Anything else: the transaction's writes are discarded, never merged.
}
