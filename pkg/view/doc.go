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

// Package view assembles virtual views: transient source buffers
// rehydrated from a chosen set of atoms, optionally grown by the
// ghost-import resolver to pull in transitive dependencies under a
// caller-supplied policy envelope.
//
// The two pieces compose through Build: the resolver walks dependency
// edges outward from the seed set (bounded BFS, caps on depth, atom
// count and tokens), then the rehydration engine orders the collected
// atoms, concatenates their verbatim content with separator comments,
// and tracks where each defined symbol landed in the output buffer.
//
// Views are pure over a read snapshot and hold no persisted state.
package view
