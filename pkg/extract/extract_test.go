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

//go:build cgo

package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/atom"
	"github.com/kraklabs/codegraph/pkg/parse"
)

// extractSource parses src with lang's grammar and runs the extractor.
func extractSource(t *testing.T, lang atom.Language, path, src string) *Result {
	t.Helper()
	registry := parse.NewRegistry()
	tree, err := registry.Parse(context.Background(), lang, []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)

	result, err := File(lang, path, []byte(src), tree.RootNode())
	require.NoError(t, err)
	return result
}

func atomByName(t *testing.T, result *Result, name string) atom.Atom {
	t.Helper()
	for _, a := range result.Atoms {
		if a.Name == name {
			return a
		}
	}
	t.Fatalf("no atom named %q among %d atoms", name, len(result.Atoms))
	return atom.Atom{}
}

func TestFile_GoFunctions(t *testing.T) {
	src := "package demo\n\n// f returns one.\nfunc f() int {\n\treturn 1\n}\n\nfunc g() int {\n\treturn f()\n}\n"
	result := extractSource(t, atom.Go, "demo.go", src)

	require.Len(t, result.Atoms, 2)

	f := atomByName(t, result, "f")
	assert.Equal(t, atom.KindFunction, f.Kind)
	assert.Equal(t, []string{"f"}, f.Defines)
	assert.Equal(t, "// f returns one.", f.Doc)

	g := atomByName(t, result, "g")
	assert.Contains(t, g.References, "f")
}

func TestFile_ContentMatchesByteRange(t *testing.T) {
	src := "package demo\n\nfunc f() int {\n\treturn 1\n}\n"
	result := extractSource(t, atom.Go, "demo.go", src)

	for _, a := range result.Atoms {
		assert.Equal(t, a.ByteRange.End-a.ByteRange.Start, len(a.Content))
		assert.Equal(t, src[a.ByteRange.Start:a.ByteRange.End], string(a.Content))
		assert.Equal(t, atom.GenerateID(a.Content), a.ID)
	}
}

func TestFile_DefinesReferencesDisjoint(t *testing.T) {
	srcs := map[atom.Language]string{
		atom.Go:     "package demo\n\ntype T struct{ N int }\n\nfunc h(x T) int {\n\tfor i := 0; i < x.N; i++ {\n\t\tx.N--\n\t}\n\treturn h(x)\n}\n",
		atom.Python: "class Node:\n    def visit(self, child):\n        return visit_all(child)\n\ndef visit_all(n):\n    return [n]\n",
	}
	for lang, src := range srcs {
		result := extractSource(t, lang, "input", src)
		for _, a := range result.Atoms {
			defined := make(map[string]bool)
			for _, d := range a.Defines {
				defined[d] = true
			}
			for _, r := range a.References {
				assert.False(t, defined[r], "%s atom %q references its own definition %q", lang, a.Name, r)
			}
		}
	}
}

func TestFile_LocalBindingsExcluded(t *testing.T) {
	src := "package demo\n\nfunc sum(items []int) int {\n\ttotal := 0\n\tfor _, item := range items {\n\t\ttotal += item\n\t}\n\treturn total\n}\n"
	result := extractSource(t, atom.Go, "demo.go", src)

	a := atomByName(t, result, "sum")
	assert.NotContains(t, a.References, "items", "formal parameters are not references")
	assert.NotContains(t, a.References, "total", "local bindings are not references")
	assert.NotContains(t, a.References, "item", "range variables are not references")
}

func TestFile_GoMethodComposedOf(t *testing.T) {
	src := "package demo\n\ntype Server struct{}\n\nfunc (s *Server) Run() error {\n\treturn nil\n}\n"
	result := extractSource(t, atom.Go, "server.go", src)

	server := atomByName(t, result, "Server")
	run := atomByName(t, result, "Server.Run")
	assert.Equal(t, atom.KindMethod, run.Kind)

	// Methods index under the qualified and the bare name: call sites
	// reference the bare identifier.
	assert.Contains(t, run.Defines, "Server.Run")
	assert.Contains(t, run.Defines, "Run")

	require.Len(t, result.Edges, 1)
	assert.Equal(t, atom.Edge{Src: server.ID, Type: atom.ComposedOf, Dst: run.ID}, result.Edges[0])
}

func TestFile_RefKinds(t *testing.T) {
	src := "package demo\n\ntype T struct{}\n\nfunc f() {}\n\nfunc h(x T) {\n\tf()\n}\n"
	result := extractSource(t, atom.Go, "demo.go", src)

	var hKinds map[string]atom.EdgeType
	for i, a := range result.Atoms {
		if a.Name == "h" {
			hKinds = result.RefKinds[i]
		}
	}
	require.NotNil(t, hKinds)
	assert.Equal(t, atom.TypeRef, hKinds["T"], "parameter type is a type position")
	assert.Equal(t, atom.Calls, hKinds["f"], "call expression is a call position")
}

func TestFile_PythonClassAndMethods(t *testing.T) {
	src := "MAX_DEPTH = 5\n\nclass Walker:\n    def visit(self, node):\n        return node\n\nasync def run():\n    return Walker()\n"
	result := extractSource(t, atom.Python, "walker.py", src)

	cst := atomByName(t, result, "MAX_DEPTH")
	assert.Equal(t, atom.KindConstant, cst.Kind)

	cls := atomByName(t, result, "Walker")
	assert.Equal(t, atom.KindClass, cls.Kind)

	visit := atomByName(t, result, "visit")
	assert.Equal(t, atom.KindMethod, visit.Kind)

	run := atomByName(t, result, "run")
	assert.Equal(t, atom.KindAsyncFunction, run.Kind)

	// The method is contained in its class.
	var found bool
	for _, e := range result.Edges {
		if e.Src == cls.ID && e.Type == atom.ComposedOf && e.Dst == visit.ID {
			found = true
		}
	}
	assert.True(t, found, "expected ComposedOf edge from class to method")
}

func TestFile_TypeScriptShapes(t *testing.T) {
	src := "interface Props {\n  name: string;\n}\n\ntype ID = string;\n\nexport class Widget {\n  render(): string {\n    return this.template();\n  }\n}\n\nconst helper = (p: Props) => p.name;\n"
	result := extractSource(t, atom.TypeScript, "widget.ts", src)

	assert.Equal(t, atom.KindInterface, atomByName(t, result, "Props").Kind)
	assert.Equal(t, atom.KindTypeAlias, atomByName(t, result, "ID").Kind)
	assert.Equal(t, atom.KindClass, atomByName(t, result, "Widget").Kind)
	assert.Equal(t, atom.KindMethod, atomByName(t, result, "render").Kind)
	assert.Equal(t, atom.KindFunction, atomByName(t, result, "helper").Kind)
}

func TestFile_RustItems(t *testing.T) {
	src := "/// Maximum retry count.\npub const MAX_RETRIES: u32 = 3;\n\npub struct Pool {\n    size: usize,\n}\n\nimpl Pool {\n    pub fn acquire(&self) -> usize {\n        self.size\n    }\n}\n\npub async fn drain(p: Pool) -> usize {\n    p.acquire()\n}\n"
	result := extractSource(t, atom.Rust, "pool.rs", src)

	cst := atomByName(t, result, "MAX_RETRIES")
	assert.Equal(t, atom.KindConstant, cst.Kind)
	assert.Equal(t, "/// Maximum retry count.", cst.Doc)

	pool := atomByName(t, result, "Pool")
	assert.Equal(t, atom.KindStruct, pool.Kind)

	acquire := atomByName(t, result, "acquire")
	assert.Equal(t, atom.KindMethod, acquire.Kind)

	drain := atomByName(t, result, "drain")
	assert.Equal(t, atom.KindAsyncFunction, drain.Kind)

	// impl methods attach to the struct's atom.
	var found bool
	for _, e := range result.Edges {
		if e.Src == pool.ID && e.Type == atom.ComposedOf && e.Dst == acquire.ID {
			found = true
		}
	}
	assert.True(t, found, "expected ComposedOf edge from struct to impl method")
}

func TestFile_EmissionOrderIsSourceOrder(t *testing.T) {
	src := "package demo\n\nfunc a() {}\n\nfunc b() {}\n\nfunc c() {}\n"
	result := extractSource(t, atom.Go, "demo.go", src)

	require.Len(t, result.Atoms, 3)
	assert.Equal(t, "a", result.Atoms[0].Name)
	assert.Equal(t, "b", result.Atoms[1].Name)
	assert.Equal(t, "c", result.Atoms[2].Name)
}

func TestFile_MalformedRegionWarns(t *testing.T) {
	src := "package demo\n\nfunc good() {}\n\nfunc ((( {\n"
	result := extractSource(t, atom.Go, "demo.go", src)

	assert.NotEmpty(t, result.Warnings)
	// The well-formed neighbor still atomizes.
	atomByName(t, result, "good")
}

func TestFile_Deterministic(t *testing.T) {
	src := "package demo\n\ntype T struct{}\n\nfunc f(x T) {}\n"
	first := extractSource(t, atom.Go, "demo.go", src)
	for i := 0; i < 3; i++ {
		again := extractSource(t, atom.Go, "demo.go", src)
		require.Equal(t, len(first.Atoms), len(again.Atoms))
		for j := range first.Atoms {
			assert.Equal(t, first.Atoms[j].ID, again.Atoms[j].ID)
			assert.Equal(t, first.Atoms[j].Defines, again.Atoms[j].Defines)
			assert.Equal(t, first.Atoms[j].References, again.Atoms[j].References)
		}
	}
}
