// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package extract is the atom extractor: it walks a parsed AST
// depth-first per language and emits atoms at recognized kind
// boundaries, with ComposedOf edges linking containers (classes, and the
// Go or Rust types that methods or impl blocks attach to) to the atoms
// they contain.
//
// Adding a language means adding a visitor function keyed by the
// language tag; node kinds the visitor doesn't recognize are skipped,
// never treated as an error.
package extract
