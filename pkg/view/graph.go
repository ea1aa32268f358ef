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

package view

import (
	"context"

	"github.com/kraklabs/codegraph/pkg/atom"
)

// Graph is the read-only slice of the store that view assembly needs.
// *storage.Store satisfies it; tests substitute an in-memory fake.
type Graph interface {
	GetAtom(ctx context.Context, id string) (*atom.Atom, error)
	OutEdges(ctx context.Context, id string, filter []atom.EdgeType) ([]atom.Edge, error)
	TokenEstimate(ctx context.Context, id string) (int, error)
}
