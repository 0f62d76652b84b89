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

// Package asset models user-authored assets, the packages that own
// them, and the multi-package session the build plans against.
//
// The package is a passive model: it answers identity, location and
// reference queries. Deciding what to compile and how belongs to
// asset/compiler.
package asset

import (
	"github.com/google/uuid"

	"go.chromium.org/luci/common/errors"
)

// Id identifies an asset across its whole lifetime, independent of
// where the asset lives or what it currently contains.
type Id uuid.UUID

// NilId is the zero Id.
var NilId Id

// NewId returns a fresh random Id.
func NewId() Id {
	return Id(uuid.New())
}

// ParseId parses the canonical uuid string form.
func ParseId(s string) (Id, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NilId, errors.Annotate(err, "asset id %q", s).Err()
	}
	return Id(u), nil
}

// String returns the canonical uuid form.
func (id Id) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether id is the zero Id.
func (id Id) IsNil() bool {
	return id == NilId
}

// Reference points at another asset by id, with the location kept as a
// fallback for resolution when the id is unknown.
type Reference struct {
	Id       Id
	Location string
}

// Asset is the in-memory value of a user-authored asset. Concrete asset
// types are plain structs registered with a type codec table; the build
// engine itself never looks inside them beyond the capability
// interfaces below.
type Asset interface{}

// Referencer is implemented by asset types that declare references to
// other assets.
type Referencer interface {
	AssetReferences() []Reference
}

// SourceProvider is implemented by asset types compiled from source
// files on disk.
type SourceProvider interface {
	SourceFiles() []string
}

// Item is one asset instance within a package: identity, location, the
// asset value, and the owning package.
type Item struct {
	Id       Id
	Location string
	Asset    Asset
	Package  *Package
}

// References returns the asset's declared references, or nil when the
// asset type declares none.
func (i *Item) References() []Reference {
	if r, ok := i.Asset.(Referencer); ok {
		return r.AssetReferences()
	}
	return nil
}

// SourceFiles returns the asset's declared source files, or nil.
func (i *Item) SourceFiles() []string {
	if s, ok := i.Asset.(SourceProvider); ok {
		return s.SourceFiles()
	}
	return nil
}

// String renders the item for logs and error messages.
func (i *Item) String() string {
	return i.Location + " (" + i.Id.String() + ")"
}
