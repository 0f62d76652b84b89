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
	"path/filepath"
	"sync"

	"github.com/danjacques/gofslock/fslock"
	"github.com/dgraph-io/badger/v3"

	"go.chromium.org/luci/common/errors"
)

// writeQueueSize bounds the number of bindings waiting for the
// background writer before Set starts blocking.
const writeQueueSize = 1024

// BadgerIndexMap is the durable IndexMap backing the content index
// across builds.
//
// Point writes issued through Set are queued to a background writer and
// applied in batches; call WaitPendingOperations before expecting
// read-after-write consistency. Merge applies a whole set of bindings in
// a single badger transaction, serialized across processes with a file
// lock, and is the only path the builder uses to commit a successful
// step's outputs.
type BadgerIndexMap struct {
	db       *badger.DB
	lockFile string

	writes  chan Entry
	flush   chan chan struct{}
	done    chan struct{}
	stopped chan struct{}

	mu      sync.Mutex
	lastErr error

	closeOnce sync.Once
}

var _ IndexMap = (*BadgerIndexMap)(nil)

// OpenBadgerIndexMap opens (creating if needed) the index map stored in
// the given directory.
func OpenBadgerIndexMap(dir string) (*BadgerIndexMap, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Annotate(err, "opening content index at %q", dir).Err()
	}
	m := &BadgerIndexMap{
		db:       db,
		lockFile: filepath.Join(dir, ".commit.lock"),
		writes:   make(chan Entry, writeQueueSize),
		flush:    make(chan chan struct{}),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go m.writer()
	return m, nil
}

// writer is the background goroutine applying queued point writes.
func (m *BadgerIndexMap) writer() {
	defer close(m.stopped)
	apply := func(batch []Entry) {
		if len(batch) == 0 {
			return
		}
		err := m.db.Update(func(txn *badger.Txn) error {
			for _, e := range batch {
				if err := txn.Set(e.Url.key(), e.Id[:]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			m.mu.Lock()
			if m.lastErr == nil {
				m.lastErr = errors.Annotate(err, "writing content index batch").Err()
			}
			m.mu.Unlock()
		}
	}
	drain := func() []Entry {
		var batch []Entry
		for {
			select {
			case e := <-m.writes:
				batch = append(batch, e)
			default:
				return batch
			}
		}
	}
	for {
		select {
		case e := <-m.writes:
			apply(append(drain(), e))
		case ack := <-m.flush:
			apply(drain())
			close(ack)
		case <-m.done:
			apply(drain())
			return
		}
	}
}

// TryGetValue implements IndexMap.
func (m *BadgerIndexMap) TryGetValue(url ObjectUrl) (ObjectId, bool) {
	var id ObjectId
	found := false
	_ = m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(url.key())
		if err != nil {
			return nil // absent or unreadable are both "not found" here
		}
		return item.Value(func(val []byte) error {
			if len(val) == ObjectIdSize {
				copy(id[:], val)
				found = true
			}
			return nil
		})
	})
	return id, found
}

// Contains implements IndexMap.
func (m *BadgerIndexMap) Contains(url ObjectUrl) bool {
	_, ok := m.TryGetValue(url)
	return ok
}

// Set implements IndexMap. The write is applied asynchronously.
func (m *BadgerIndexMap) Set(url ObjectUrl, id ObjectId) {
	m.writes <- Entry{Url: url, Id: id}
}

// SearchValues implements IndexMap.
func (m *BadgerIndexMap) SearchValues(pred func(ObjectUrl) bool) []Entry {
	var out []Entry
	_ = m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			url := urlFromKey(item.KeyCopy(nil))
			if !pred(url) {
				continue
			}
			if err := item.Value(func(val []byte) error {
				if len(val) != ObjectIdSize {
					return nil
				}
				var id ObjectId
				copy(id[:], val)
				out = append(out, Entry{Url: url, Id: id})
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	return out
}

// MergedIdMap implements IndexMap.
func (m *BadgerIndexMap) MergedIdMap() []Entry {
	return m.SearchValues(func(ObjectUrl) bool { return true })
}

// WaitPendingOperations implements IndexMap.
func (m *BadgerIndexMap) WaitPendingOperations(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case m.flush <- ack:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.lastErr
	m.lastErr = nil
	return err
}

// Merge durably binds every entry in one transaction: either all of them
// land or none do. Concurrent builder processes committing into the same
// index serialize on a file lock.
func (m *BadgerIndexMap) Merge(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	err := fslock.With(m.lockFile, func() error {
		return m.db.Update(func(txn *badger.Txn) error {
			for _, e := range entries {
				if err := txn.Set(e.Url.key(), e.Id[:]); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return errors.Annotate(err, "committing %d content index entries", len(entries)).Err()
	}
	return nil
}

// Close implements IndexMap.
func (m *BadgerIndexMap) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.done)
		<-m.stopped
		err = m.db.Close()
	})
	return err
}
