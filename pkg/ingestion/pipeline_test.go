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

//go:build cgo

package ingestion

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/atom"
	"github.com/kraklabs/codegraph/pkg/view"
)

func newTestPipeline(t *testing.T) *LocalPipeline {
	t.Helper()
	cfg := Config{
		ProjectID: "test",
		IngestionConfig: IngestionConfig{
			LocalDataDir:   t.TempDir(),
			LocalEngine:    "mem",
			CheckpointPath: t.TempDir(),
		},
	}
	p, err := NewLocalPipeline(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func goRecord(path, src string) FileRecord {
	return FileRecord{SourcePath: path, Language: atom.Go, Content: []byte(src)}
}

func TestIngest_CallEdgeAndView(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	src := "package demo\n\nfunc f() int {\n\treturn 1\n}\n\nfunc g() int {\n\treturn f()\n}\n"
	result, err := p.Ingest(ctx, []FileRecord{goRecord("demo/demo.go", src)})
	require.NoError(t, err)

	assert.Equal(t, 2, result.AtomsAdded)
	assert.Equal(t, 0, result.FilesSkipped)

	store := p.Store()
	fID, err := store.ResolveSymbol(ctx, "f", "demo/demo.go")
	require.NoError(t, err)
	require.NotEmpty(t, fID)
	gID, err := store.ResolveSymbol(ctx, "g", "demo/demo.go")
	require.NoError(t, err)
	require.NotEmpty(t, gID)

	fAtom, err := store.GetAtom(ctx, fID)
	require.NoError(t, err)
	assert.Equal(t, []string{"f"}, fAtom.Defines)

	gAtom, err := store.GetAtom(ctx, gID)
	require.NoError(t, err)
	assert.Contains(t, gAtom.References, "f")

	// g calls f: one Calls edge g -> f.
	out, err := store.OutEdges(ctx, gID, []atom.EdgeType{atom.Calls})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, fID, out[0].Dst)

	// A depth-1 view over Calls pulls f in, ordered before g by byte
	// offset, with its symbol located.
	pol := atom.DefaultExpansionPolicy()
	pol.MaxDepth = 1
	pol.Follow = []atom.EdgeType{atom.Calls}
	v, err := view.Build(ctx, store, []string{gID}, pol)
	require.NoError(t, err)

	assert.Contains(t, v.Source, "func f() int")
	assert.Contains(t, v.Source, "func g() int")
	assert.Less(t, strings.Index(v.Source, "func f()"), strings.Index(v.Source, "func g()"))
	assert.Contains(t, v.SymbolLocations, "f")
}

func TestIngest_TypeRefEdge(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	src := "package demo\n\ntype T struct {\n\tN int\n}\n\nfunc h(x T) int {\n\treturn x.N\n}\n"
	result, err := p.Ingest(ctx, []FileRecord{goRecord("demo/types.go", src)})
	require.NoError(t, err)
	assert.Equal(t, 2, result.AtomsAdded)

	store := p.Store()
	hID, err := store.ResolveSymbol(ctx, "h", "demo/types.go")
	require.NoError(t, err)
	tID, err := store.ResolveSymbol(ctx, "T", "demo/types.go")
	require.NoError(t, err)

	hAtom, err := store.GetAtom(ctx, hID)
	require.NoError(t, err)
	assert.Contains(t, hAtom.References, "T")

	out, err := store.OutEdges(ctx, hID, []atom.EdgeType{atom.TypeRef})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, tID, out[0].Dst)

	pol := atom.DefaultExpansionPolicy()
	pol.MaxDepth = 1
	pol.Follow = []atom.EdgeType{atom.TypeRef}
	v, err := view.Build(ctx, store, []string{hID}, pol)
	require.NoError(t, err)
	assert.Contains(t, v.Source, "type T struct")
	assert.Contains(t, v.Source, "func h(x T)")
}

func TestIngest_MethodCallEdge(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	src := "package demo\n\ntype Server struct{}\n\nfunc (s *Server) Run() error {\n\treturn nil\n}\n\nfunc start(s *Server) error {\n\treturn s.Run()\n}\n"
	_, err := p.Ingest(ctx, []FileRecord{goRecord("demo/server.go", src)})
	require.NoError(t, err)

	store := p.Store()
	startID, err := store.ResolveSymbol(ctx, "start", "demo/server.go")
	require.NoError(t, err)
	require.NotEmpty(t, startID)

	// The selector call "s.Run()" references the bare method name,
	// which resolves through the method's bare symbol row.
	runID, err := store.ResolveSymbol(ctx, "Run", "demo/server.go")
	require.NoError(t, err)
	require.NotEmpty(t, runID)
	qualified, err := store.ResolveSymbol(ctx, "Server.Run", "demo/server.go")
	require.NoError(t, err)
	assert.Equal(t, runID, qualified)

	out, err := store.OutEdges(ctx, startID, []atom.EdgeType{atom.Calls})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, runID, out[0].Dst)
}

func TestIngest_HintPicksSameModule(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	fileA := goRecord("moda/lib.go", "package moda\n\nfunc shared() int {\n\treturn 1\n}\n")
	fileB := goRecord("modb/lib.go", "package modb\n\nfunc shared() int {\n\treturn 2\n}\n")
	fileC := goRecord("modb/use.go", "package modb\n\nfunc use() int {\n\treturn shared()\n}\n")

	_, err := p.Ingest(ctx, []FileRecord{fileA, fileB, fileC})
	require.NoError(t, err)

	store := p.Store()
	useID, err := store.ResolveSymbol(ctx, "use", "modb/use.go")
	require.NoError(t, err)
	sharedB, err := store.ResolveSymbol(ctx, "shared", "modb/lib.go")
	require.NoError(t, err)

	// The reference from file C binds to module B's definition only.
	out, err := store.OutEdges(ctx, useID, []atom.EdgeType{atom.Calls})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, sharedB, out[0].Dst)
}

func TestIngest_MalformedRegionBetweenFunctions(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	src := "package demo\n\nfunc good1() {}\n\nfunc ((( {\n\nfunc good2() {}\n"
	result, err := p.Ingest(ctx, []FileRecord{goRecord("demo/bad.go", src)})
	require.NoError(t, err)

	// The malformed region degrades to a warning; the surrounding
	// functions still atomize and the file is not skipped.
	assert.Equal(t, 0, result.FilesSkipped)
	assert.GreaterOrEqual(t, result.AtomsAdded, 2)

	hasExtractorWarning := false
	for _, w := range result.Warnings {
		if w.Kind == atom.WarnExtractor {
			hasExtractorWarning = true
		}
		assert.NotEqual(t, atom.WarnParse, w.Kind)
	}
	assert.True(t, hasExtractorWarning, "expected an extractor warning for the malformed region")

	store := p.Store()
	for _, name := range []string{"good1", "good2"} {
		id, err := store.ResolveSymbol(ctx, name, "demo/bad.go")
		require.NoError(t, err)
		assert.NotEmpty(t, id, "expected %s to survive the malformed neighbor", name)
	}
}

func TestIngest_CommentsOnlyFile(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	src := "// Package demo does nothing.\n// Nothing at all.\npackage demo\n"
	result, err := p.Ingest(ctx, []FileRecord{goRecord("demo/empty.go", src)})
	require.NoError(t, err)

	assert.Equal(t, 0, result.AtomsAdded)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 1, result.FilesProcessed)
}

func TestIngest_Idempotent(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	records := []FileRecord{
		goRecord("demo/a.go", "package demo\n\nfunc f() {}\n\nfunc g() { f() }\n"),
	}

	_, err := p.Ingest(ctx, records)
	require.NoError(t, err)
	first, err := p.Store().Stats(ctx)
	require.NoError(t, err)

	_, err = p.Ingest(ctx, records)
	require.NoError(t, err)
	second, err := p.Store().Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second, "re-ingesting the same batch must not grow the store")
}

func TestIngest_SameContentSharesID(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	// Byte-identical functions in different files collapse to one atom.
	fn := "func same() int {\n\treturn 0\n}"
	_, err := p.Ingest(ctx, []FileRecord{
		goRecord("a/a.go", "package a\n\n"+fn+"\n"),
		goRecord("b/b.go", "package b\n\n"+fn+"\n"),
	})
	require.NoError(t, err)

	stats, err := p.Store().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Atoms)
}

func TestRun_SampleProject(t *testing.T) {
	cfg := Config{
		ProjectID: "sample",
		RepoSource: RepoSource{
			Type:  "local_path",
			Value: "testdata/sample_project",
		},
		IngestionConfig: IngestionConfig{
			LocalDataDir:   t.TempDir(),
			LocalEngine:    "mem",
			CheckpointPath: t.TempDir(),
		},
	}
	p, err := NewLocalPipeline(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, result.FilesProcessed, 0)
	assert.Greater(t, result.AtomsAdded, 0)
	assert.NotEmpty(t, result.RunID)

	stats, err := p.Store().Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.AtomsAdded, stats.Atoms)
}

func TestRun_GoFixtures(t *testing.T) {
	cfg := Config{
		ProjectID: "fixtures",
		RepoSource: RepoSource{
			Type:  "local_path",
			Value: "testdata/go",
		},
		IngestionConfig: IngestionConfig{
			LocalDataDir:   t.TempDir(),
			LocalEngine:    "mem",
			CheckpointPath: t.TempDir(),
		},
	}
	p, err := NewLocalPipeline(cfg, nil)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesSkipped, "all fixtures should parse")

	// The fixtures cover methods, generics, embedded structs, and call
	// chains; each file contributes at least one atom.
	assert.GreaterOrEqual(t, result.AtomsAdded, result.FilesProcessed)
}

func TestIngest_Cancelled(t *testing.T) {
	p := newTestPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Ingest(ctx, []FileRecord{
		goRecord("demo/a.go", "package demo\n\nfunc f() {}\n"),
	})
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
}
