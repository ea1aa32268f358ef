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
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/atom"
)

func TestExpand_DepthZeroReturnsSeeds(t *testing.T) {
	g := newFakeGraph()
	seed := g.add(goFunc("a.go", "g", "func g() { f() }"))
	dep := g.add(goFunc("a.go", "f", "func f() {}"))
	g.link(seed, atom.Calls, dep)

	pol := atom.DefaultExpansionPolicy()
	pol.MaxDepth = 0
	pol.Follow = []atom.EdgeType{atom.Calls}

	result, err := NewResolver(g, nil).Expand(context.Background(), []string{seed}, pol)
	require.NoError(t, err)

	assert.Equal(t, []string{seed}, result.Atoms)
	assert.Empty(t, result.GhostAtoms)
	assert.False(t, result.Truncated)
}

func TestExpand_FollowsCallEdge(t *testing.T) {
	g := newFakeGraph()
	callee := g.add(goFunc("a.go", "f", "func f() {}"))
	caller := g.add(goFunc("a.go", "g", "func g() { f() }"))
	g.link(caller, atom.Calls, callee)

	pol := atom.DefaultExpansionPolicy()
	pol.MaxDepth = 1
	pol.Follow = []atom.EdgeType{atom.Calls}

	result, err := NewResolver(g, nil).Expand(context.Background(), []string{caller}, pol)
	require.NoError(t, err)

	assert.Len(t, result.Atoms, 2)
	require.Equal(t, []string{callee}, result.GhostAtoms)
	reason := result.PerInclusionReason[callee]
	assert.Equal(t, caller, reason.SourceAtom)
	assert.Equal(t, atom.Calls, reason.EdgeType)
}

func TestExpand_MaxAtomsTruncates(t *testing.T) {
	g := newFakeGraph()
	seed := g.add(goFunc("a.go", "hub", "func hub() { a(); b(); c(); d(); e() }"))
	for i := 0; i < 5; i++ {
		dep := g.add(goFunc("a.go", fmt.Sprintf("dep%d", i), fmt.Sprintf("func dep%d() {}", i)))
		g.link(seed, atom.Imports, dep)
	}

	pol := atom.DefaultExpansionPolicy()
	pol.MaxAtoms = 1

	result, err := NewResolver(g, nil).Expand(context.Background(), []string{seed}, pol)
	require.NoError(t, err)

	assert.Equal(t, []string{seed}, result.Atoms)
	assert.Empty(t, result.GhostAtoms)
	assert.True(t, result.Truncated)
}

func TestExpand_TokenCapHolds(t *testing.T) {
	g := newFakeGraph()
	seed := g.add(goFunc("a.go", "g", "func g() {}")) // 11 bytes -> 3 tokens
	big := g.add(goFunc("a.go", "huge", "func huge() {"+string(make([]byte, 4096))+"}"))
	small := g.add(goFunc("a.go", "tiny", "func tiny() {}"))
	g.link(seed, atom.Imports, big)
	g.link(seed, atom.Imports, small)

	pol := atom.DefaultExpansionPolicy()
	pol.MaxTokens = 20

	result, err := NewResolver(g, nil).Expand(context.Background(), []string{seed}, pol)
	require.NoError(t, err)

	// The big atom blows the token budget; the small one fits.
	assert.NotContains(t, result.Atoms, big)
	assert.Contains(t, result.Atoms, small)
	assert.True(t, result.Truncated)

	total := 0
	for _, id := range result.Atoms {
		n, err := g.TokenEstimate(context.Background(), id)
		require.NoError(t, err)
		total += n
	}
	assert.LessOrEqual(t, total, pol.MaxTokens)
}

func TestExpand_DepthBound(t *testing.T) {
	g := newFakeGraph()
	a := g.add(goFunc("x.go", "a", "func a() { b() }"))
	b := g.add(goFunc("x.go", "b", "func b() { c() }"))
	c := g.add(goFunc("x.go", "c", "func c() {}"))
	g.link(a, atom.Calls, b)
	g.link(b, atom.Calls, c)

	pol := atom.DefaultExpansionPolicy()
	pol.MaxDepth = 1
	pol.Follow = []atom.EdgeType{atom.Calls}

	result, err := NewResolver(g, nil).Expand(context.Background(), []string{a}, pol)
	require.NoError(t, err)

	assert.Contains(t, result.Atoms, b)
	assert.NotContains(t, result.Atoms, c, "two hops should not be reachable at depth 1")
}

func TestExpand_AlwaysIncludeTypes(t *testing.T) {
	g := newFakeGraph()
	a := g.add(goFunc("x.go", "a", "func a() { b() }"))
	b := g.add(goFunc("x.go", "b", "func b(t T) {}"))
	typ := goFunc("x.go", "T", "type T struct{}")
	typ.Kind = atom.KindStruct
	tid := g.add(typ)
	g.link(a, atom.Calls, b)
	g.link(b, atom.TypeRef, tid)

	pol := atom.DefaultExpansionPolicy()
	pol.MaxDepth = 1
	pol.Follow = []atom.EdgeType{atom.Calls}
	pol.AlwaysIncludeTypes = true

	result, err := NewResolver(g, nil).Expand(context.Background(), []string{a}, pol)
	require.NoError(t, err)

	// b arrives via the depth-1 call edge; its parameter type follows
	// through the type chase past the depth cutoff.
	assert.Contains(t, result.Atoms, b)
	assert.Contains(t, result.Atoms, tid)
}

func TestExpand_Deterministic(t *testing.T) {
	g := newFakeGraph()
	seed := g.add(goFunc("a.go", "hub", "func hub() {}"))
	for i := 0; i < 8; i++ {
		dep := g.add(goFunc("a.go", fmt.Sprintf("d%d", i), fmt.Sprintf("func d%d() {}", i)))
		g.link(seed, atom.Imports, dep)
	}

	pol := atom.DefaultExpansionPolicy()
	pol.MaxAtoms = 4

	first, err := NewResolver(g, nil).Expand(context.Background(), []string{seed}, pol)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := NewResolver(g, nil).Expand(context.Background(), []string{seed}, pol)
		require.NoError(t, err)
		assert.Equal(t, first.Atoms, again.Atoms)
		assert.Equal(t, first.GhostAtoms, again.GhostAtoms)
	}
}

func TestBuild_SignaturesOnlyGhosts(t *testing.T) {
	g := newFakeGraph()
	callee := g.add(goFunc("a.go", "f", "func f() int {\n\treturn 1\n}"))
	caller := g.add(goFunc("a.go", "g", "func g() { f() }"))
	g.link(caller, atom.Calls, callee)

	pol := atom.DefaultExpansionPolicy()
	pol.Follow = []atom.EdgeType{atom.Calls}
	pol.SignaturesOnly = true

	v, err := Build(context.Background(), g, []string{caller}, pol)
	require.NoError(t, err)

	// The seed keeps its body; the ghost is projected.
	assert.Contains(t, v.Source, "func g() { f() }")
	assert.Contains(t, v.Source, "func f() int { /* elided */ }")
	assert.NotContains(t, v.Source, "return 1")
}

func TestBuild_ViewOrderingEndToEnd(t *testing.T) {
	g := newFakeGraph()
	f := goFunc("a.go", "f", "func f() {}")
	f.ByteRange = atom.ByteRange{Start: 0, End: 11}
	fid := g.add(f)

	gg := goFunc("a.go", "g", "func g() { f() }")
	gg.ByteRange = atom.ByteRange{Start: 20, End: 36}
	gid := g.add(gg)
	g.link(gid, atom.Calls, fid)

	pol := atom.DefaultExpansionPolicy()
	pol.MaxDepth = 1
	pol.Follow = []atom.EdgeType{atom.Calls}

	v, err := Build(context.Background(), g, []string{gid}, pol)
	require.NoError(t, err)

	// Both bodies present; f (earlier byte offset in the same file)
	// renders before g.
	fPos := strings.Index(v.Source, "func f()")
	gPos := strings.Index(v.Source, "func g()")
	require.GreaterOrEqual(t, fPos, 0)
	require.GreaterOrEqual(t, gPos, 0)
	assert.Less(t, fPos, gPos)
	assert.Contains(t, v.SymbolLocations, "f")
}
