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
	"bytes"
	"crypto/sha256"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.chromium.org/luci/common/errors"
)

// FileObjectDatabase stores object payloads as content-addressed files
// under root, fanned out by the first hex byte of the id:
//
//	<root>/objects/ab/ab0123...ef
//
// Writes go to a temp file first and are renamed into place, so a
// half-written object is never observable under its final name. Writing
// the same content twice is a cheap no-op.
type FileObjectDatabase struct {
	root string
}

// OpenFileObjectDatabase opens (creating if needed) the object database
// rooted at dir.
func OpenFileObjectDatabase(dir string) (*FileObjectDatabase, error) {
	if err := os.MkdirAll(filepath.Join(dir, "objects"), fs.ModePerm); err != nil {
		return nil, errors.Annotate(err, "initializing object database at %q", dir).Err()
	}
	return &FileObjectDatabase{root: dir}, nil
}

// objectPath returns the final path of the object with the given id.
func (db *FileObjectDatabase) objectPath(id ObjectId) string {
	hexed := id.String()
	return filepath.Join(db.root, "objects", hexed[:2], hexed)
}

// Contains reports whether the object with the given id is stored.
func (db *FileObjectDatabase) Contains(id ObjectId) bool {
	if id.IsEmpty() {
		return false
	}
	_, err := os.Stat(db.objectPath(id))
	return err == nil
}

// OpenRead opens the stored object for reading.
func (db *FileObjectDatabase) OpenRead(id ObjectId) (io.ReadCloser, error) {
	if id.IsEmpty() {
		return nil, errors.Reason("reading empty object id").Err()
	}
	f, err := os.Open(db.objectPath(id))
	if err != nil {
		return nil, errors.Annotate(err, "opening object %s", id).Err()
	}
	return f, nil
}

// Write stores everything read from src and returns the resulting id and
// payload size. The id is computed while spooling, so callers never need
// to hash first.
func (db *FileObjectDatabase) Write(src io.Reader) (ObjectId, int64, error) {
	tmp, err := os.CreateTemp(db.root, "incoming-*")
	if err != nil {
		return ObjectIdEmpty, 0, errors.Annotate(err, "creating spool file").Err()
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), src)
	if cErr := tmp.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return ObjectIdEmpty, 0, errors.Annotate(err, "spooling object").Err()
	}

	var id ObjectId
	copy(id[:], h.Sum(nil))

	final := db.objectPath(id)
	if _, statErr := os.Stat(final); statErr == nil {
		return id, n, nil // already stored, content-addressing dedupes
	}
	if err := os.MkdirAll(filepath.Dir(final), fs.ModePerm); err != nil {
		return ObjectIdEmpty, 0, errors.Annotate(err, "creating fanout dir for %s", id).Err()
	}
	if err := os.Rename(tmpName, final); err != nil {
		return ObjectIdEmpty, 0, errors.Annotate(err, "storing object %s", id).Err()
	}
	return id, n, nil
}

// WriteBytes is Write for an in-memory payload.
func (db *FileObjectDatabase) WriteBytes(content []byte) (ObjectId, error) {
	id, _, err := db.Write(bytes.NewReader(content))
	return id, err
}

// ReadBytes loads the whole payload of the object with the given id.
func (db *FileObjectDatabase) ReadBytes(id ObjectId) ([]byte, error) {
	r, err := db.OpenRead(id)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
