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

package contentdb

import (
	"context"

	"go.chromium.org/luci/common/errors"
)

// ErrNotSupported is panicked by read-only composite index maps when a
// caller attempts mutation or full enumeration. Hitting it is a
// programming error, not a runtime condition to recover from.
var ErrNotSupported = errors.New("contentdb: operation not supported on this index map")

// Entry is one url→id binding of an index map.
type Entry struct {
	Url ObjectUrl
	Id  ObjectId
}

// IndexMap is a mapping from logical urls to content ids.
//
// Implementations are safe for concurrent use. Some implementations are
// read-only composite views assembled for a single build; those panic
// with ErrNotSupported from Set and MergedIdMap.
type IndexMap interface {
	// TryGetValue returns the id bound to url, if any.
	TryGetValue(url ObjectUrl) (ObjectId, bool)

	// Contains reports whether url has a binding.
	Contains(url ObjectUrl) bool

	// Set binds url to id, replacing any previous binding. Implementations
	// may apply the write asynchronously; use WaitPendingOperations before
	// relying on read-after-write consistency from another goroutine.
	Set(url ObjectUrl, id ObjectId)

	// SearchValues returns the entries whose url satisfies pred.
	SearchValues(pred func(ObjectUrl) bool) []Entry

	// MergedIdMap enumerates every binding of the map.
	MergedIdMap() []Entry

	// WaitPendingOperations drains asynchronous writers, returning the
	// first write error encountered since the previous drain.
	WaitPendingOperations(ctx context.Context) error

	// Close flushes and releases the map. The map is unusable afterwards.
	Close() error
}
