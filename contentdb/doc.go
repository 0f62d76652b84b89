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

// Package contentdb implements the content-addressable side of the asset
// build engine: object ids (content hashes), logical object urls, index
// maps binding urls to ids, and a simple file-backed object database.
//
// An ObjectId names content; an ObjectUrl names a build output. Several
// urls may bind to the same id (deduplication), one url binds to at most
// one id at a time. Index maps are where those bindings live: in memory
// for tests and transaction overlays, or in a badger database for the
// durable index that survives across builds.
package contentdb
