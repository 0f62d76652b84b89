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
	"encoding/hex"
	"io"
	"os"

	"go.chromium.org/luci/common/errors"
)

// ObjectIdSize is the size in bytes of an ObjectId.
const ObjectIdSize = sha256.Size

// ObjectId is the content hash of a stored object's bytes.
//
// It is a value type: immutable once computed, comparable with ==, and
// totally ordered via Compare. Hashing identical bytes always yields the
// same id; file metadata (timestamps, permissions) never contributes.
type ObjectId [ObjectIdSize]byte

// ObjectIdEmpty is the sentinel "absent" id.
var ObjectIdEmpty ObjectId

// IsEmpty reports whether id is the absent sentinel.
func (id ObjectId) IsEmpty() bool {
	return id == ObjectIdEmpty
}

// String returns the lowercase hex form of the id.
func (id ObjectId) String() string {
	return hex.EncodeToString(id[:])
}

// Compare returns -1, 0 or 1 ordering ids by their bytes.
func (id ObjectId) Compare(other ObjectId) int {
	return bytes.Compare(id[:], other[:])
}

// ParseObjectId parses the hex form produced by String.
func ParseObjectId(s string) (ObjectId, error) {
	if len(s) != ObjectIdSize*2 {
		return ObjectIdEmpty, errors.Reason("object id %q: want %d hex chars, got %d", s, ObjectIdSize*2, len(s)).Err()
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ObjectIdEmpty, errors.Annotate(err, "object id %q", s).Err()
	}
	var id ObjectId
	copy(id[:], raw)
	return id, nil
}

// HashBytes hashes content and returns its ObjectId.
func HashBytes(content []byte) ObjectId {
	return ObjectId(sha256.Sum256(content))
}

// Hash hashes everything read from src and returns the ObjectId along
// with the number of bytes consumed.
func Hash(src io.Reader) (ObjectId, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, src)
	if err != nil {
		return ObjectIdEmpty, 0, err
	}
	var id ObjectId
	copy(id[:], h.Sum(nil))
	return id, n, nil
}

// ComputeFileHash hashes the contents of the file at path.
//
// Only the bytes matter: touching the file's metadata without changing
// its content leaves the hash unchanged.
func ComputeFileHash(path string) (ObjectId, error) {
	f, err := os.Open(path)
	if err != nil {
		return ObjectIdEmpty, errors.Annotate(err, "hashing %q", path).Err()
	}
	defer f.Close()
	id, _, err := Hash(f)
	if err != nil {
		return ObjectIdEmpty, errors.Annotate(err, "hashing %q", path).Err()
	}
	return id, nil
}
