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

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kraklabs/codegraph/pkg/atom"
)

// SchemaVersion is the manifest version this binary reads and writes.
// Opening a store with any other version fails with SchemaMismatchError.
const SchemaVersion = 1

// DefaultMaxAtomSize is the largest atom content accepted by PutAtom
// when StoreConfig does not override it.
const DefaultMaxAtomSize = 1 << 20 // 1 MiB

// StoreConfig configures a graph store.
type StoreConfig struct {
	// DataDir, Engine and ProjectID are passed through to the embedded
	// backend; see EmbeddedConfig.
	DataDir   string
	Engine    string
	ProjectID string

	// MaxAtomSize caps atom content in bytes. Zero means
	// DefaultMaxAtomSize.
	MaxAtomSize int
}

// Store is the persistent atom graph: atoms, content, the symbol index,
// and typed edges in both directions. All operations are serializable
// at the backend level; readers holding only Query access never block
// each other.
type Store struct {
	backend Backend
	builder *DatalogBuilder
	logger  *slog.Logger

	maxAtomSize int

	// symbolSeq hands out insertion sequence numbers for cg_symbol
	// rows; initialized from the stored maximum at open time.
	symbolSeq atomic.Int64

	closeOnce sync.Once
	closeErr  error
}

// Open opens (or creates) a graph store. On a fresh store the manifest
// is written with the current schema version and the atom id format;
// on an existing store the manifest version is checked and an
// unreadable version refuses to open. Any journal entries left behind
// by a crashed batch are replayed before the store is handed out.
func Open(cfg StoreConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAtomSize <= 0 {
		cfg.MaxAtomSize = DefaultMaxAtomSize
	}

	backend, err := NewEmbeddedBackend(EmbeddedConfig{
		DataDir:   cfg.DataDir,
		Engine:    cfg.Engine,
		ProjectID: cfg.ProjectID,
	})
	if err != nil {
		return nil, &atom.StorageFaultError{Op: "open", Err: err}
	}
	if err := backend.EnsureSchema(); err != nil {
		_ = backend.Close()
		return nil, &atom.StorageFaultError{Op: "ensure schema", Err: err}
	}

	s := &Store{
		backend:     backend,
		builder:     NewDatalogBuilder(),
		logger:      logger,
		maxAtomSize: cfg.MaxAtomSize,
	}

	ctx := context.Background()
	if err := s.checkManifest(ctx); err != nil {
		_ = backend.Close()
		return nil, err
	}
	if err := s.recoverJournal(ctx); err != nil {
		_ = backend.Close()
		return nil, err
	}
	if err := s.loadSymbolSeq(ctx); err != nil {
		_ = backend.Close()
		return nil, err
	}

	return s, nil
}

// OpenWithBackend wraps an already-open backend, used by tests and by
// callers that manage the backend lifecycle themselves. The same
// manifest and journal checks run as in Open.
func OpenWithBackend(backend Backend, maxAtomSize int, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if maxAtomSize <= 0 {
		maxAtomSize = DefaultMaxAtomSize
	}
	s := &Store{
		backend:     backend,
		builder:     NewDatalogBuilder(),
		logger:      logger,
		maxAtomSize: maxAtomSize,
	}
	ctx := context.Background()
	if err := s.checkManifest(ctx); err != nil {
		return nil, err
	}
	if err := s.recoverJournal(ctx); err != nil {
		return nil, err
	}
	if err := s.loadSymbolSeq(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close flushes and releases the backend. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.backend.Close()
	})
	return s.closeErr
}

// Backend exposes the underlying backend for callers that need raw
// Datalog access (the query CLI command).
func (s *Store) Backend() Backend {
	return s.backend
}

// MaxAtomSize returns the configured atom content cap in bytes.
func (s *Store) MaxAtomSize() int {
	return s.maxAtomSize
}

func (s *Store) checkManifest(ctx context.Context) error {
	res, err := s.backend.Query(ctx, `?[key, value] := *cg_manifest{key, value}`)
	if err != nil {
		return &atom.StorageFaultError{Op: "read manifest", Err: err}
	}

	manifest := make(map[string]string, len(res.Rows))
	for _, row := range res.Rows {
		if len(row) == 2 {
			k, _ := row[0].(string)
			v, _ := row[1].(string)
			manifest[k] = v
		}
	}

	if raw, ok := manifest["schema_version"]; ok {
		found, err := strconv.Atoi(raw)
		if err != nil || found != SchemaVersion {
			if err != nil {
				found = -1
			}
			return &atom.SchemaMismatchError{Found: found, Expected: SchemaVersion}
		}
		return nil
	}

	// Fresh store: stamp the manifest. The id prefix and hash algorithm
	// are fixed here for the store's lifetime.
	script := fmt.Sprintf(
		"?[key, value] <- [[\"schema_version\", %s], [\"id_prefix\", %s], [\"id_algorithm\", %s]] :put cg_manifest {key => value}\n",
		lit(strconv.Itoa(SchemaVersion)), lit(atom.IDPrefix), lit(atom.IDAlgorithm))
	if err := s.backend.Execute(ctx, script); err != nil {
		return &atom.StorageFaultError{Op: "write manifest", Err: err}
	}
	return nil
}

// recoverJournal replays any cg_ingest_log rows left by a batch that
// never committed. Scripts in the journal are pure :put/:rm statements
// and therefore idempotent, so redo is safe regardless of how much of
// the batch already landed.
func (s *Store) recoverJournal(ctx context.Context) error {
	res, err := s.backend.Query(ctx, `?[batch_id, seq, script] := *cg_ingest_log{batch_id, seq, script} :sort batch_id, seq`)
	if err != nil {
		return &atom.StorageFaultError{Op: "read ingest log", Err: err}
	}
	if len(res.Rows) == 0 {
		return nil
	}

	s.logger.Warn("store.journal.recover", "entries", len(res.Rows))
	for _, row := range res.Rows {
		if len(row) != 3 {
			continue
		}
		script, _ := row[2].(string)
		if script == "" {
			continue
		}
		if err := s.backend.Execute(ctx, script); err != nil {
			return &atom.StorageFaultError{Op: "replay ingest log", Err: err}
		}
	}
	if err := s.backend.Execute(ctx, `?[batch_id, seq] := *cg_ingest_log{batch_id, seq} :rm cg_ingest_log {batch_id, seq}`); err != nil {
		return &atom.StorageFaultError{Op: "clear ingest log", Err: err}
	}
	return nil
}

func (s *Store) loadSymbolSeq(ctx context.Context) error {
	res, err := s.backend.Query(ctx, `?[max(seq)] := *cg_symbol{seq}`)
	if err != nil {
		return &atom.StorageFaultError{Op: "load symbol seq", Err: err}
	}
	var maxSeq int64 = -1
	if len(res.Rows) == 1 && len(res.Rows[0]) == 1 {
		switch v := res.Rows[0][0].(type) {
		case float64:
			maxSeq = int64(v)
		case int64:
			maxSeq = v
		}
	}
	s.symbolSeq.Store(maxSeq + 1)
	return nil
}

// ReserveSymbolSeq hands out n consecutive insertion sequence numbers
// and returns the first. Used by batched ingestion, which builds its
// own mutation scripts through the DatalogBuilder.
func (s *Store) ReserveSymbolSeq(n int) int64 {
	return s.symbolSeq.Add(int64(n)) - int64(n)
}

// PutAtom stores an atom with its content and indexes its defined
// symbols. Idempotent by id: re-storing the same content is a no-op
// beyond refreshing metadata. Content larger than the configured cap is
// rejected with OversizedAtomError; content exactly at the cap is
// accepted.
func (s *Store) PutAtom(ctx context.Context, a atom.Atom) error {
	if len(a.Content) > s.maxAtomSize {
		return &atom.OversizedAtomError{
			SourcePath: a.SourcePath,
			Size:       len(a.Content),
			MaxSize:    s.maxAtomSize,
		}
	}
	if a.ID == "" {
		a.ID = atom.GenerateID(a.Content)
	}

	script := s.builder.BuildAtomPut(a, s.ReserveSymbolSeq(len(a.Defines)))
	if err := s.backend.Execute(ctx, script); err != nil {
		return &atom.StorageFaultError{Op: "put atom", Err: err}
	}
	return nil
}

// GetAtom returns an atom's metadata and content, or NotFoundError.
func (s *Store) GetAtom(ctx context.Context, id string) (*atom.Atom, error) {
	res, err := s.backend.Query(ctx, fmt.Sprintf(
		`?[language, kind, name, source_path, byte_start, byte_end, line_start, line_end, doc, defines, references] := *cg_atom{id, language, kind, name, source_path, byte_start, byte_end, line_start, line_end, doc, defines, references}, id == %s`,
		lit(id)))
	if err != nil {
		return nil, &atom.StorageFaultError{Op: "get atom", Err: err}
	}
	if len(res.Rows) == 0 {
		return nil, &atom.NotFoundError{AtomID: id}
	}
	row := res.Rows[0]
	if len(row) != 11 {
		return nil, &atom.StorageFaultError{Op: "get atom", Err: fmt.Errorf("malformed atom row for %s", id)}
	}

	contentRes, err := s.backend.Query(ctx, fmt.Sprintf(
		`?[text] := *cg_content{id, text}, id == %s`, lit(id)))
	if err != nil {
		return nil, &atom.StorageFaultError{Op: "get content", Err: err}
	}
	if len(contentRes.Rows) == 0 {
		// Metadata without content means a partial write escaped the
		// journal, which the durability contract forbids.
		return nil, &atom.StorageFaultError{Op: "get content", Err: fmt.Errorf("atom %s has metadata but no content", id)}
	}
	text, _ := contentRes.Rows[0][0].(string)

	a := &atom.Atom{
		ID:         id,
		Language:   atom.Language(asString(row[0])),
		Kind:       atom.Kind(asString(row[1])),
		Name:       asString(row[2]),
		SourcePath: asString(row[3]),
		ByteRange:  atom.ByteRange{Start: asInt(row[4]), End: asInt(row[5])},
		LineRange:  atom.LineRange{Start: asInt(row[6]), End: asInt(row[7])},
		Doc:        asString(row[8]),
		Defines:    asStrings(row[9]),
		References: asStrings(row[10]),
		Content:    []byte(text),
	}
	return a, nil
}

// HasAtom reports whether id exists without fetching content.
func (s *Store) HasAtom(ctx context.Context, id string) (bool, error) {
	res, err := s.backend.Query(ctx, fmt.Sprintf(
		`?[id] := *cg_atom{id}, id == %s`, lit(id)))
	if err != nil {
		return false, &atom.StorageFaultError{Op: "has atom", Err: err}
	}
	return len(res.Rows) > 0, nil
}

// symbolCandidate is one defining atom of a symbol, in insertion order.
type symbolCandidate struct {
	atomID     string
	sourcePath string
	seq        int64
}

// ResolveSymbol finds the atom defining name. With multiple candidates
// the hint disambiguates: first an exact source-path match, then a
// match on the enclosing directory. If neither narrows the field to
// one, AmbiguousSymbolError is returned rather than silently picking.
// An unknown name resolves to "" with no error: references to the
// standard library or external modules are expected to miss.
func (s *Store) ResolveSymbol(ctx context.Context, name, hint string) (string, error) {
	res, err := s.backend.Query(ctx, fmt.Sprintf(
		`?[atom_id, seq, source_path] := *cg_symbol{name, atom_id, seq}, *cg_atom{id: atom_id, source_path}, name == %s :sort seq`,
		lit(name)))
	if err != nil {
		return "", &atom.StorageFaultError{Op: "resolve symbol", Err: err}
	}
	if len(res.Rows) == 0 {
		return "", nil
	}

	cands := make([]symbolCandidate, 0, len(res.Rows))
	for _, row := range res.Rows {
		cands = append(cands, symbolCandidate{
			atomID:     asString(row[0]),
			seq:        int64(asInt(row[1])),
			sourcePath: asString(row[2]),
		})
	}
	if len(cands) == 1 {
		return cands[0].atomID, nil
	}

	if hint != "" {
		for _, c := range cands {
			if c.sourcePath == hint {
				return c.atomID, nil
			}
		}
		hintDir := filepath.Dir(hint)
		var dirMatches []symbolCandidate
		for _, c := range cands {
			if filepath.Dir(c.sourcePath) == hintDir {
				dirMatches = append(dirMatches, c)
			}
		}
		if len(dirMatches) == 1 {
			return dirMatches[0].atomID, nil
		}
		if len(dirMatches) > 1 {
			cands = dirMatches
		}
	}

	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.atomID
	}
	return "", &atom.AmbiguousSymbolError{Name: name, Candidates: ids}
}

// AddEdge records a typed directed edge, updating the forward and
// reverse indices in one transaction. Idempotent. Both endpoints must
// already exist.
func (s *Store) AddEdge(ctx context.Context, src string, typ atom.EdgeType, dst string) error {
	for _, id := range []string{src, dst} {
		ok, err := s.HasAtom(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return &atom.NotFoundError{AtomID: id}
		}
	}

	script := s.builder.BuildEdgePut(atom.Edge{Src: src, Type: typ, Dst: dst})
	if err := s.backend.Execute(ctx, script); err != nil {
		return &atom.StorageFaultError{Op: "add edge", Err: err}
	}
	return nil
}

// OutEdges lists the edges leaving id, optionally restricted to the
// given types, ordered by (type, dst) for determinism.
func (s *Store) OutEdges(ctx context.Context, id string, filter []atom.EdgeType) ([]atom.Edge, error) {
	res, err := s.backend.Query(ctx, fmt.Sprintf(
		`?[type, dst] := *cg_edge_out{src, type, dst}, src == %s :sort type, dst`, lit(id)))
	if err != nil {
		return nil, &atom.StorageFaultError{Op: "out edges", Err: err}
	}
	return edgesFromRows(res.Rows, filter, func(typ atom.EdgeType, other string) atom.Edge {
		return atom.Edge{Src: id, Type: typ, Dst: other}
	}), nil
}

// InEdges lists the edges arriving at id, optionally restricted to the
// given types, ordered by (type, src) for determinism.
func (s *Store) InEdges(ctx context.Context, id string, filter []atom.EdgeType) ([]atom.Edge, error) {
	res, err := s.backend.Query(ctx, fmt.Sprintf(
		`?[type, src] := *cg_edge_in{dst, type, src}, dst == %s :sort type, src`, lit(id)))
	if err != nil {
		return nil, &atom.StorageFaultError{Op: "in edges", Err: err}
	}
	return edgesFromRows(res.Rows, filter, func(typ atom.EdgeType, other string) atom.Edge {
		return atom.Edge{Src: other, Type: typ, Dst: id}
	}), nil
}

func edgesFromRows(rows [][]any, filter []atom.EdgeType, mk func(atom.EdgeType, string) atom.Edge) []atom.Edge {
	var allowed map[atom.EdgeType]bool
	if len(filter) > 0 {
		allowed = make(map[atom.EdgeType]bool, len(filter))
		for _, t := range filter {
			allowed[t] = true
		}
	}
	var edges []atom.Edge
	for _, row := range rows {
		if len(row) != 2 {
			continue
		}
		typ := atom.EdgeType(asString(row[0]))
		if allowed != nil && !allowed[typ] {
			continue
		}
		edges = append(edges, mk(typ, asString(row[1])))
	}
	return edges
}

// EvictAtom removes an atom, its content, its symbol-index rows, and
// its outgoing edges. Refused while any edge still points at the atom:
// eviction must never leave dangling references in the graph.
func (s *Store) EvictAtom(ctx context.Context, id string) error {
	a, err := s.GetAtom(ctx, id)
	if err != nil {
		return err
	}
	incoming, err := s.InEdges(ctx, id, nil)
	if err != nil {
		return err
	}
	if len(incoming) > 0 {
		return fmt.Errorf("atom %s still has %d incoming edges", id, len(incoming))
	}
	outgoing, err := s.OutEdges(ctx, id, nil)
	if err != nil {
		return err
	}

	script := s.builder.BuildDeletions(DeletionSet{AtomIDs: []string{id}, Edges: outgoing}, map[string][]string{id: a.Defines})
	if err := s.backend.Execute(ctx, script); err != nil {
		return &atom.StorageFaultError{Op: "evict atom", Err: err}
	}
	return nil
}

// TokenEstimate returns the stored token estimate for an atom.
func (s *Store) TokenEstimate(ctx context.Context, id string) (int, error) {
	res, err := s.backend.Query(ctx, fmt.Sprintf(
		`?[token_estimate] := *cg_atom{id, token_estimate}, id == %s`, lit(id)))
	if err != nil {
		return 0, &atom.StorageFaultError{Op: "token estimate", Err: err}
	}
	if len(res.Rows) == 0 {
		return 0, &atom.NotFoundError{AtomID: id}
	}
	return asInt(res.Rows[0][0]), nil
}

// Stats counts atoms, edges, distinct symbol names, and content bytes.
func (s *Store) Stats(ctx context.Context) (*atom.Stats, error) {
	stats := &atom.Stats{}

	count := func(script string) (int, error) {
		res, err := s.backend.Query(ctx, script)
		if err != nil {
			return 0, err
		}
		if len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
			return 0, nil
		}
		return asInt(res.Rows[0][0]), nil
	}

	var err error
	if stats.Atoms, err = count(`?[count(id)] := *cg_atom{id}`); err != nil {
		return nil, &atom.StorageFaultError{Op: "stats", Err: err}
	}
	// Edge rows are unique by (src, type, dst), so counting any bound
	// column counts edges.
	if stats.Edges, err = count(`?[count(dst)] := *cg_edge_out{src, type, dst}`); err != nil {
		return nil, &atom.StorageFaultError{Op: "stats", Err: err}
	}
	if stats.Symbols, err = count(`?[count_unique(name)] := *cg_symbol{name}`); err != nil {
		return nil, &atom.StorageFaultError{Op: "stats", Err: err}
	}

	res, err := s.backend.Query(ctx, `?[sum(length(text))] := *cg_content{text}`)
	if err != nil {
		return nil, &atom.StorageFaultError{Op: "stats", Err: err}
	}
	if len(res.Rows) > 0 && len(res.Rows[0]) > 0 {
		stats.ContentBytes = int64(asInt(res.Rows[0][0]))
	}

	return stats, nil
}

// SymbolNames returns the sorted distinct names in the symbol index,
// used by diagnostics and shell completion.
func (s *Store) SymbolNames(ctx context.Context) ([]string, error) {
	res, err := s.backend.Query(ctx, `?[name] := *cg_symbol{name}`)
	if err != nil {
		return nil, &atom.StorageFaultError{Op: "symbol names", Err: err}
	}
	seen := make(map[string]bool, len(res.Rows))
	var names []string
	for _, row := range res.Rows {
		if n := asString(row[0]); n != "" && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

// JournalAppend records scripts under batchID in the ingest log before
// they are executed, so a crash mid-batch is recoverable at next open.
func (s *Store) JournalAppend(ctx context.Context, batchID string, scripts []string) error {
	var out strings.Builder
	for i, script := range scripts {
		fmt.Fprintf(&out, "{ ?[batch_id, seq, script] <- [[%s, %d, %s]] :put cg_ingest_log {batch_id, seq => script} }\n",
			lit(batchID), i, lit(script))
	}
	if err := s.backend.Execute(ctx, out.String()); err != nil {
		return &atom.StorageFaultError{Op: "journal append", Err: err}
	}
	return nil
}

// JournalClear commits a batch by dropping its journal entries.
func (s *Store) JournalClear(ctx context.Context, batchID string) error {
	script := fmt.Sprintf(
		`?[batch_id, seq] := *cg_ingest_log{batch_id, seq}, batch_id == %s :rm cg_ingest_log {batch_id, seq}`,
		lit(batchID))
	if err := s.backend.Execute(ctx, script); err != nil {
		return &atom.StorageFaultError{Op: "journal clear", Err: err}
	}
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func asStrings(v any) []string {
	raw, ok := v.([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
