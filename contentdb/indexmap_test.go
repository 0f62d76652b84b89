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
	"strings"
	"testing"

	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"
)

func TestMemoryIndexMap(t *testing.T) {
	t.Parallel()

	ftt.Run("MemoryIndexMap", t, func(t *ftt.Test) {
		m := NewMemoryIndexMap()
		urlA := ContentUrl("textures/grass")
		urlB := ContentUrl("models/tree")
		idA := HashBytes([]byte("grass"))
		idB := HashBytes([]byte("tree"))

		t.Run("lookup and upsert", func(t *ftt.Test) {
			_, ok := m.TryGetValue(urlA)
			assert.Loosely(t, ok, should.BeFalse)

			m.Set(urlA, idA)
			got, ok := m.TryGetValue(urlA)
			assert.Loosely(t, ok, should.BeTrue)
			assert.Loosely(t, got, should.Equal(idA))
			assert.Loosely(t, m.Contains(urlA), should.BeTrue)

			// Last write wins.
			m.Set(urlA, idB)
			got, _ = m.TryGetValue(urlA)
			assert.Loosely(t, got, should.Equal(idB))
		})

		t.Run("search by predicate", func(t *ftt.Test) {
			m.Set(urlA, idA)
			m.Set(urlB, idB)
			found := m.SearchValues(func(u ObjectUrl) bool {
				return strings.HasPrefix(u.Path, "textures/")
			})
			assert.Loosely(t, found, should.HaveLength(1))
			assert.Loosely(t, found[0].Url, should.Equal(urlA))
			assert.Loosely(t, found[0].Id, should.Equal(idA))
		})

		t.Run("merged map enumerates everything", func(t *ftt.Test) {
			m.Set(urlA, idA)
			m.Set(urlB, idB)
			assert.Loosely(t, m.MergedIdMap(), should.HaveLength(2))
		})

		t.Run("unset removes the binding", func(t *ftt.Test) {
			m.Set(urlA, idA)
			m.Unset(urlA)
			assert.Loosely(t, m.Contains(urlA), should.BeFalse)
		})

		t.Run("pending operations drain is a no-op", func(t *ftt.Test) {
			assert.Loosely(t, m.WaitPendingOperations(context.Background()), should.BeNil)
			assert.Loosely(t, m.Close(), should.BeNil)
		})
	})
}

func TestBadgerIndexMap(t *testing.T) {
	t.Parallel()

	ftt.Run("BadgerIndexMap", t, func(t *ftt.Test) {
		ctx := context.Background()
		m, err := OpenBadgerIndexMap(t.TempDir())
		assert.Loosely(t, err, should.BeNil)
		defer func() { _ = m.Close() }()

		url := ContentUrl("sounds/ambient")
		id := HashBytes([]byte("ambient"))

		t.Run("async write is visible after drain", func(t *ftt.Test) {
			m.Set(url, id)
			assert.Loosely(t, m.WaitPendingOperations(ctx), should.BeNil)
			got, ok := m.TryGetValue(url)
			assert.Loosely(t, ok, should.BeTrue)
			assert.Loosely(t, got, should.Equal(id))
		})

		t.Run("merge commits all entries at once", func(t *ftt.Test) {
			entries := []Entry{
				{Url: ContentUrl("a"), Id: HashBytes([]byte("1"))},
				{Url: ContentUrl("b"), Id: HashBytes([]byte("2"))},
				{Url: DataUrl("a"), Id: HashBytes([]byte("3"))},
			}
			assert.Loosely(t, m.Merge(ctx, entries), should.BeNil)
			for _, e := range entries {
				got, ok := m.TryGetValue(e.Url)
				assert.Loosely(t, ok, should.BeTrue)
				assert.Loosely(t, got, should.Equal(e.Id))
			}
			// Url namespaces do not collide.
			gotContent, _ := m.TryGetValue(ContentUrl("a"))
			gotData, _ := m.TryGetValue(DataUrl("a"))
			assert.Loosely(t, gotContent == gotData, should.BeFalse)
		})

		t.Run("survives reopen", func(t *ftt.Test) {
			dir := t.TempDir()
			first, err := OpenBadgerIndexMap(dir)
			assert.Loosely(t, err, should.BeNil)
			first.Set(url, id)
			assert.Loosely(t, first.WaitPendingOperations(ctx), should.BeNil)
			assert.Loosely(t, first.Close(), should.BeNil)

			second, err := OpenBadgerIndexMap(dir)
			assert.Loosely(t, err, should.BeNil)
			defer func() { _ = second.Close() }()
			got, ok := second.TryGetValue(url)
			assert.Loosely(t, ok, should.BeTrue)
			assert.Loosely(t, got, should.Equal(id))
		})
	})
}

func TestFileObjectDatabase(t *testing.T) {
	t.Parallel()

	ftt.Run("FileObjectDatabase", t, func(t *ftt.Test) {
		db, err := OpenFileObjectDatabase(t.TempDir())
		assert.Loosely(t, err, should.BeNil)

		t.Run("write then read round trip", func(t *ftt.Test) {
			id, err := db.WriteBytes([]byte("mesh payload"))
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, id, should.Equal(HashBytes([]byte("mesh payload"))))
			assert.Loosely(t, db.Contains(id), should.BeTrue)

			got, err := db.ReadBytes(id)
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, got, should.Match([]byte("mesh payload")))
		})

		t.Run("same content dedupes", func(t *ftt.Test) {
			a, err := db.WriteBytes([]byte("dup"))
			assert.Loosely(t, err, should.BeNil)
			b, err := db.WriteBytes([]byte("dup"))
			assert.Loosely(t, err, should.BeNil)
			assert.Loosely(t, a, should.Equal(b))
		})

		t.Run("missing object", func(t *ftt.Test) {
			assert.Loosely(t, db.Contains(HashBytes([]byte("never stored"))), should.BeFalse)
			_, err := db.OpenRead(HashBytes([]byte("never stored")))
			assert.Loosely(t, err, should.NotBeNil)
		})

		t.Run("empty id rejected", func(t *ftt.Test) {
			_, err := db.OpenRead(ObjectIdEmpty)
			assert.Loosely(t, err, should.NotBeNil)
		})
	})
}
