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
	"strings"

	"go.chromium.org/luci/common/errors"
)

// UrlType distinguishes the namespaces of logical build outputs.
type UrlType byte

const (
	// UrlTypeNone is the zero value and never names a real output.
	UrlTypeNone UrlType = iota
	// UrlTypeContent names compiled runtime content.
	UrlTypeContent
	// UrlTypeData names auxiliary build data (side artifacts, caches).
	UrlTypeData
)

// String returns the scheme used in the canonical url form.
func (t UrlType) String() string {
	switch t {
	case UrlTypeContent:
		return "content"
	case UrlTypeData:
		return "data"
	}
	return "none"
}

// ObjectUrl is a typed logical path naming a build output, distinct from
// the content it currently resolves to.
type ObjectUrl struct {
	Type UrlType
	Path string
}

// ContentUrl returns the content-typed url for path.
func ContentUrl(path string) ObjectUrl {
	return ObjectUrl{Type: UrlTypeContent, Path: path}
}

// DataUrl returns the data-typed url for path.
func DataUrl(path string) ObjectUrl {
	return ObjectUrl{Type: UrlTypeData, Path: path}
}

// String returns the canonical "scheme://path" form.
func (u ObjectUrl) String() string {
	return u.Type.String() + "://" + u.Path
}

// IsEmpty reports whether u is the zero url.
func (u ObjectUrl) IsEmpty() bool {
	return u.Type == UrlTypeNone && u.Path == ""
}

// key returns the byte form used as a store key. The type byte prefixes
// the path so the namespaces never collide.
func (u ObjectUrl) key() []byte {
	k := make([]byte, 0, len(u.Path)+1)
	k = append(k, byte(u.Type))
	return append(k, u.Path...)
}

// urlFromKey is the inverse of ObjectUrl.key.
func urlFromKey(k []byte) ObjectUrl {
	if len(k) == 0 {
		return ObjectUrl{}
	}
	return ObjectUrl{Type: UrlType(k[0]), Path: string(k[1:])}
}

// ParseObjectUrl parses the canonical "scheme://path" form.
func ParseObjectUrl(s string) (ObjectUrl, error) {
	scheme, path, ok := strings.Cut(s, "://")
	if !ok {
		return ObjectUrl{}, errors.Reason("object url %q: missing scheme", s).Err()
	}
	switch scheme {
	case "content":
		return ContentUrl(path), nil
	case "data":
		return DataUrl(path), nil
	}
	return ObjectUrl{}, errors.Reason("object url %q: unknown scheme %q", s, scheme).Err()
}
