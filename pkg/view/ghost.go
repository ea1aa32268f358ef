// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package view

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/kraklabs/codegraph/pkg/atom"
)

// Resolver walks the dependency graph outward from a seed set, adding
// ghost atoms while every cap in the policy holds.
type Resolver struct {
	graph  Graph
	logger *slog.Logger
}

// NewResolver creates a ghost-import resolver over g.
func NewResolver(g Graph, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{graph: g, logger: logger}
}

// Expand runs the bounded BFS. Seeds are always included (deduplicated,
// in sorted order); each ghost admission checks the atom-count and
// token caps first and sets Truncated instead of admitting when either
// would be exceeded. Traversal visits each BFS round's frontier in
// sorted id order so results are stable across runs.
func (r *Resolver) Expand(ctx context.Context, seeds []string, pol atom.ExpansionPolicy) (*atom.ExpansionResult, error) {
	follow := pol.Follow
	if len(follow) == 0 {
		follow = atom.DefaultExpansionPolicy().Follow
	}

	result := &atom.ExpansionResult{
		PerInclusionReason: make(map[string]atom.InclusionReason),
	}

	included := make(map[string]bool, len(seeds))
	var frontier []string
	for _, id := range seeds {
		if !included[id] {
			included[id] = true
			result.Atoms = append(result.Atoms, id)
			frontier = append(frontier, id)
		}
	}
	sort.Strings(result.Atoms)
	sort.Strings(frontier)

	tokens := 0
	for _, id := range result.Atoms {
		n, err := r.graph.TokenEstimate(ctx, id)
		if err != nil {
			var nf *atom.NotFoundError
			if errors.As(err, &nf) {
				continue // missing seeds surface later as rehydration placeholders
			}
			return nil, err
		}
		tokens += n
	}

	admit := func(src string, typ atom.EdgeType, dst string) (bool, error) {
		if included[dst] {
			return false, nil
		}
		cost, err := r.graph.TokenEstimate(ctx, dst)
		if err != nil {
			var nf *atom.NotFoundError
			if errors.As(err, &nf) {
				return false, nil // dangling edge; nothing to include
			}
			return false, err
		}
		if len(included)+1 > pol.MaxAtoms || tokens+cost > pol.MaxTokens {
			result.Truncated = true
			return false, nil
		}
		included[dst] = true
		tokens += cost
		result.Atoms = append(result.Atoms, dst)
		result.GhostAtoms = append(result.GhostAtoms, dst)
		result.PerInclusionReason[dst] = atom.InclusionReason{SourceAtom: src, EdgeType: typ}
		return true, nil
	}

	expandRound := func(frontier []string, follow []atom.EdgeType) ([]string, error) {
		var next []string
		for _, id := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			edges, err := r.graph.OutEdges(ctx, id, follow)
			if err != nil {
				var nf *atom.NotFoundError
				if errors.As(err, &nf) {
					continue
				}
				return nil, err
			}
			sort.Slice(edges, func(i, j int) bool { return edges[i].Dst < edges[j].Dst })
			for _, e := range edges {
				ok, err := admit(id, e.Type, e.Dst)
				if err != nil {
					return nil, err
				}
				if ok {
					next = append(next, e.Dst)
				}
			}
		}
		sort.Strings(next)
		return next, nil
	}

	var err error
	for depth := 0; depth < pol.MaxDepth && len(frontier) > 0; depth++ {
		frontier, err = expandRound(frontier, follow)
		if err != nil {
			return nil, err
		}
	}

	// With AlwaysIncludeTypes set, type dependencies keep flowing past
	// the depth cutoff: a ghost function is useless without the types
	// its signature names. Caps still bound the walk.
	if pol.AlwaysIncludeTypes {
		typeFrontier := append([]string(nil), result.Atoms...)
		sort.Strings(typeFrontier)
		for len(typeFrontier) > 0 {
			typeFrontier, err = expandRound(typeFrontier, []atom.EdgeType{atom.TypeRef})
			if err != nil {
				return nil, err
			}
		}
	}

	sort.Strings(result.GhostAtoms)
	if result.Truncated {
		r.logger.Debug("ghost.expand.truncated",
			"seeds", len(seeds),
			"included", len(result.Atoms),
			"tokens", tokens,
		)
	}
	ghostMetrics.recordExpansion(len(result.GhostAtoms), result.Truncated)
	return result, nil
}
