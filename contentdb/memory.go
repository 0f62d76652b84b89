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
	"sync"
)

// MemoryIndexMap is an in-memory IndexMap. Writes are applied
// synchronously, so WaitPendingOperations is a no-op.
type MemoryIndexMap struct {
	mu sync.RWMutex
	m  map[ObjectUrl]ObjectId
}

var _ IndexMap = (*MemoryIndexMap)(nil)

// NewMemoryIndexMap returns an empty in-memory index map.
func NewMemoryIndexMap() *MemoryIndexMap {
	return &MemoryIndexMap{m: map[ObjectUrl]ObjectId{}}
}

// TryGetValue implements IndexMap.
func (m *MemoryIndexMap) TryGetValue(url ObjectUrl) (ObjectId, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.m[url]
	return id, ok
}

// Contains implements IndexMap.
func (m *MemoryIndexMap) Contains(url ObjectUrl) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.m[url]
	return ok
}

// Set implements IndexMap.
func (m *MemoryIndexMap) Set(url ObjectUrl, id ObjectId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[url] = id
}

// Unset removes any binding for url.
func (m *MemoryIndexMap) Unset(url ObjectUrl) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.m, url)
}

// SearchValues implements IndexMap.
func (m *MemoryIndexMap) SearchValues(pred func(ObjectUrl) bool) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for url, id := range m.m {
		if pred(url) {
			out = append(out, Entry{Url: url, Id: id})
		}
	}
	return out
}

// MergedIdMap implements IndexMap.
func (m *MemoryIndexMap) MergedIdMap() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.m))
	for url, id := range m.m {
		out = append(out, Entry{Url: url, Id: id})
	}
	return out
}

// Merge applies every entry under a single lock acquisition, so readers
// observe either none or all of them.
func (m *MemoryIndexMap) Merge(ctx context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.m[e.Url] = e.Id
	}
	return nil
}

// WaitPendingOperations implements IndexMap.
func (m *MemoryIndexMap) WaitPendingOperations(ctx context.Context) error {
	return nil
}

// Close implements IndexMap.
func (m *MemoryIndexMap) Close() error {
	return nil
}
