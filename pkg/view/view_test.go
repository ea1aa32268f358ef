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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/atom"
)

// fakeGraph is an in-memory Graph for tests that don't need a real
// store behind them.
type fakeGraph struct {
	atoms map[string]*atom.Atom
	edges map[string][]atom.Edge
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		atoms: make(map[string]*atom.Atom),
		edges: make(map[string][]atom.Edge),
	}
}

func (g *fakeGraph) add(a atom.Atom) string {
	if a.ID == "" {
		a.ID = atom.GenerateID(a.Content)
	}
	copied := a
	g.atoms[a.ID] = &copied
	return a.ID
}

func (g *fakeGraph) link(src string, typ atom.EdgeType, dst string) {
	g.edges[src] = append(g.edges[src], atom.Edge{Src: src, Type: typ, Dst: dst})
}

func (g *fakeGraph) GetAtom(_ context.Context, id string) (*atom.Atom, error) {
	a, ok := g.atoms[id]
	if !ok {
		return nil, &atom.NotFoundError{AtomID: id}
	}
	return a, nil
}

func (g *fakeGraph) OutEdges(_ context.Context, id string, filter []atom.EdgeType) ([]atom.Edge, error) {
	allowed := make(map[atom.EdgeType]bool, len(filter))
	for _, t := range filter {
		allowed[t] = true
	}
	var out []atom.Edge
	for _, e := range g.edges[id] {
		if len(filter) == 0 || allowed[e.Type] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (g *fakeGraph) TokenEstimate(_ context.Context, id string) (int, error) {
	a, ok := g.atoms[id]
	if !ok {
		return 0, &atom.NotFoundError{AtomID: id}
	}
	return atom.EstimateTokens(len(a.Content)), nil
}

func goFunc(path, name, content string) atom.Atom {
	return atom.Atom{
		Language:   atom.Go,
		Kind:       atom.KindFunction,
		Name:       name,
		SourcePath: path,
		ByteRange:  atom.ByteRange{Start: 0, End: len(content)},
		LineRange:  atom.LineRange{Start: 1, End: 1 + strings.Count(content, "\n")},
		Defines:    []string{name},
		Content:    []byte(content),
	}
}

func TestRehydrate_SingleAtomRoundtrip(t *testing.T) {
	g := newFakeGraph()
	content := "func Single() int {\n\treturn 42\n}"
	id := g.add(goFunc("a.go", "Single", content))

	v, err := Rehydrate(context.Background(), g, []string{id}, nil)
	require.NoError(t, err)

	require.Equal(t, []string{id}, v.Atoms)
	assert.Contains(t, v.Source, content)

	// Stripping the separator comment and padding recovers exactly the
	// atom's content.
	var kept []string
	for _, l := range strings.Split(v.Source, "\n") {
		if strings.HasPrefix(l, "// -----") || l == "" {
			continue
		}
		kept = append(kept, l)
	}
	assert.Equal(t, content, strings.Join(kept, "\n"))
	assert.Equal(t, atom.EstimateTokens(len(v.Source)), v.TokenEstimate)
}

func TestRehydrate_Ordering(t *testing.T) {
	g := newFakeGraph()

	fn := goFunc("mod/a.go", "Run", "func Run() {}")
	fn.ByteRange = atom.ByteRange{Start: 100, End: 113}
	fnID := g.add(fn)

	typ := goFunc("mod/b.go", "Config", "type Config struct{}")
	typ.Kind = atom.KindStruct
	typID := g.add(typ)

	cst := goFunc("mod/z.go", "MaxRetries", "const MaxRetries = 3")
	cst.Kind = atom.KindConstant
	cstID := g.add(cst)

	v, err := Rehydrate(context.Background(), g, []string{fnID, typID, cstID}, nil)
	require.NoError(t, err)

	// Constants come before types, types before functions, regardless
	// of source path order.
	require.Equal(t, []string{cstID, typID, fnID}, v.Atoms)

	constPos := strings.Index(v.Source, "const MaxRetries")
	typePos := strings.Index(v.Source, "type Config")
	funcPos := strings.Index(v.Source, "func Run")
	assert.Less(t, constPos, typePos)
	assert.Less(t, typePos, funcPos)
}

func TestRehydrate_SymbolLocations(t *testing.T) {
	g := newFakeGraph()
	fID := g.add(goFunc("a.go", "f", "func f() {}"))
	gID := g.add(goFunc("a.go", "g", "func g() {\n\tf()\n}"))

	v, err := Rehydrate(context.Background(), g, []string{gID, fID}, nil)
	require.NoError(t, err)

	lines := strings.Split(v.Source, "\n")
	for _, name := range []string{"f", "g"} {
		loc, ok := v.SymbolLocations[name]
		require.True(t, ok, "missing symbol location for %s", name)
		require.LessOrEqual(t, loc, len(lines))
		assert.True(t, strings.HasPrefix(lines[loc-1], "func "+name),
			"line %d is %q, want start of %s", loc, lines[loc-1], name)
	}
}

func TestRehydrate_MissingAtomPlaceholder(t *testing.T) {
	g := newFakeGraph()
	id := g.add(goFunc("a.go", "f", "func f() {}"))

	v, err := Rehydrate(context.Background(), g, []string{id, "atom:sha256:gone"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"atom:sha256:gone"}, v.Missing)
	assert.Contains(t, v.Source, "// missing: atom:sha256:gone")
	// The view stays usable: the found atom is still present.
	assert.Contains(t, v.Source, "func f() {}")
}

func TestRehydrate_PythonSeparators(t *testing.T) {
	g := newFakeGraph()
	py := atom.Atom{
		Language:   atom.Python,
		Kind:       atom.KindFunction,
		Name:       "handle",
		SourcePath: "app.py",
		Defines:    []string{"handle"},
		Content:    []byte("def handle(req):\n    return req"),
	}
	py.ByteRange = atom.ByteRange{Start: 0, End: len(py.Content)}
	id := g.add(py)

	v, err := Rehydrate(context.Background(), g, []string{id}, nil)
	require.NoError(t, err)
	assert.Equal(t, atom.Python, v.Language)
	assert.Contains(t, v.Source, "# ----- handle -----")
}

func TestRehydrate_Cancelled(t *testing.T) {
	g := newFakeGraph()
	id := g.add(goFunc("a.go", "f", "func f() {}"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := Rehydrate(ctx, g, []string{id}, nil)
	require.NoError(t, err)
	assert.True(t, v.Cancelled)
	assert.Empty(t, v.Atoms)
}

func TestSignatureProjection(t *testing.T) {
	tests := []struct {
		name string
		a    atom.Atom
		want string
	}{
		{
			name: "go function",
			a: atom.Atom{
				Language: atom.Go,
				Content:  []byte("func Sum(a, b int) int {\n\treturn a + b\n}"),
			},
			want: "func Sum(a, b int) int { /* elided */ }",
		},
		{
			name: "python function",
			a: atom.Atom{
				Language: atom.Python,
				Content:  []byte("def total(xs):\n    return sum(xs)"),
			},
			want: "def total(xs):\n    ...",
		},
		{
			name: "braceless content unchanged",
			a: atom.Atom{
				Language: atom.Go,
				Content:  []byte("type ID = string"),
			},
			want: "type ID = string",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SignatureProjection(&tt.a))
		})
	}
}
