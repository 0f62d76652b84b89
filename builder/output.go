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
	"sync"

	"github.com/assetforge/assetforge/contentdb"
)

// OutputObject is one url→id binding produced by a build step that has
// not necessarily been flushed to the durable index yet.
type OutputObject struct {
	Url contentdb.ObjectUrl
	Id  contentdb.ObjectId
}

// OutputObjectGroup collects the output objects of one build step so
// that sibling and dependent steps can observe them before they are
// durably persisted.
//
// The group has its own lock; readers crossing transaction/group/base
// boundaries lock exactly one structure at a time.
type OutputObjectGroup struct {
	mu      sync.Mutex
	objects map[contentdb.ObjectUrl]contentdb.ObjectId
}

// NewOutputObjectGroup returns an empty group.
func NewOutputObjectGroup() *OutputObjectGroup {
	return &OutputObjectGroup{objects: map[contentdb.ObjectUrl]contentdb.ObjectId{}}
}

// Register binds url to id in the group, replacing any previous binding.
func (g *OutputObjectGroup) Register(url contentdb.ObjectUrl, id contentdb.ObjectId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.objects[url] = id
}

// TryGetValue returns the id bound to url, if any.
func (g *OutputObjectGroup) TryGetValue(url contentdb.ObjectUrl) (contentdb.ObjectId, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.objects[url]
	return id, ok
}

// Len returns the number of bindings in the group.
func (g *OutputObjectGroup) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.objects)
}

// Snapshot returns a copy of the group's bindings.
func (g *OutputObjectGroup) Snapshot() []OutputObject {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]OutputObject, 0, len(g.objects))
	for url, id := range g.objects {
		out = append(out, OutputObject{Url: url, Id: id})
	}
	return out
}
