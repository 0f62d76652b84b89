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

	"github.com/assetforge/assetforge/contentdb"
)

// BuildTransaction is the isolated namespace of build outputs for one
// command execution.
//
// Lookup order is: the transaction's own map, then each output object
// group in order, then the base index map. Writes go only to the
// transaction's own map; nothing leaks out until the owning command
// succeeds and its entries are registered and committed by the executor.
//
// Each lookup locks at most one structure at a time and never holds a
// lock across structures, so concurrently executing steps can read each
// other's groups without lock-order deadlocks.
type BuildTransaction struct {
	mu  sync.Mutex
	own map[contentdb.ObjectUrl]contentdb.ObjectId

	groups []*OutputObjectGroup
	base   contentdb.IndexMap // may be nil
}

// NewBuildTransaction builds a transaction over an optional base index
// map and the output groups of already-scheduled sibling steps, in
// lookup order.
func NewBuildTransaction(base contentdb.IndexMap, groups ...*OutputObjectGroup) *BuildTransaction {
	return &BuildTransaction{
		own:    map[contentdb.ObjectUrl]contentdb.ObjectId{},
		groups: groups,
		base:   base,
	}
}

// TryGetValue resolves url through the transaction's layered namespace.
func (t *BuildTransaction) TryGetValue(url contentdb.ObjectUrl) (contentdb.ObjectId, bool) {
	t.mu.Lock()
	id, ok := t.own[url]
	t.mu.Unlock()
	if ok {
		return id, true
	}
	for _, g := range t.groups {
		if id, ok := g.TryGetValue(url); ok {
			return id, true
		}
	}
	if t.base != nil {
		return t.base.TryGetValue(url)
	}
	return contentdb.ObjectIdEmpty, false
}

// Set binds url to id in the transaction's own map. Last write wins.
func (t *BuildTransaction) Set(url contentdb.ObjectUrl, id contentdb.ObjectId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.own[url] = id
}

// Unset removes url from the transaction's own map, re-exposing whatever
// the groups or the base map bind it to.
func (t *BuildTransaction) Unset(url contentdb.ObjectUrl) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.own, url)
}

// TransactionIdMap snapshots the transaction's own writes. The executor
// merges them into the durable index once the owning command succeeds.
func (t *BuildTransaction) TransactionIdMap() []contentdb.Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]contentdb.Entry, 0, len(t.own))
	for url, id := range t.own {
		out = append(out, contentdb.Entry{Url: url, Id: id})
	}
	return out
}

// SearchValues filters the transaction's own writes. The groups and the
// base map are deliberately not searched: enumerating the full virtual
// namespace is a caller-level aggregation.
func (t *BuildTransaction) SearchValues(pred func(contentdb.ObjectUrl) bool) []contentdb.Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []contentdb.Entry
	for url, id := range t.own {
		if pred(url) {
			out = append(out, contentdb.Entry{Url: url, Id: id})
		}
	}
	return out
}

// IndexMap returns the contentdb.IndexMap view of the transaction that
// commands use to read and write bindings during execution.
func (t *BuildTransaction) IndexMap() contentdb.IndexMap {
	return transactionIndexMap{t}
}

// transactionIndexMap adapts BuildTransaction to contentdb.IndexMap. It
// is a query/upsert view scoped to one build: full enumeration is out of
// contract and fails loudly.
type transactionIndexMap struct {
	t *BuildTransaction
}

var _ contentdb.IndexMap = transactionIndexMap{}

func (m transactionIndexMap) TryGetValue(url contentdb.ObjectUrl) (contentdb.ObjectId, bool) {
	return m.t.TryGetValue(url)
}

func (m transactionIndexMap) Contains(url contentdb.ObjectUrl) bool {
	_, ok := m.t.TryGetValue(url)
	return ok
}

func (m transactionIndexMap) Set(url contentdb.ObjectUrl, id contentdb.ObjectId) {
	m.t.Set(url, id)
}

func (m transactionIndexMap) SearchValues(pred func(contentdb.ObjectUrl) bool) []contentdb.Entry {
	return m.t.SearchValues(pred)
}

func (m transactionIndexMap) MergedIdMap() []contentdb.Entry {
	panic(contentdb.ErrNotSupported)
}

func (m transactionIndexMap) WaitPendingOperations(ctx context.Context) error {
	return nil
}

func (m transactionIndexMap) Close() error {
	return nil
}
