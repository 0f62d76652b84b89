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

package asset

// RawAsset is the built-in asset type for files imported verbatim,
// with no compiler of their own.
type RawAsset struct {
	Source string `yaml:"source"`
}

var _ SourceProvider = (*RawAsset)(nil)

// SourceFiles implements SourceProvider.
func (a *RawAsset) SourceFiles() []string {
	if a.Source == "" {
		return nil
	}
	return []string{a.Source}
}
