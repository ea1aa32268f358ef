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

// Package storage provides the persistent atom graph.
//
// The package has two layers. Backend is a thin Datalog execution
// interface with one implementation, EmbeddedBackend, wrapping a local
// CozoDB instance. Store sits on top and exposes the graph operations
// the rest of the registry uses: PutAtom, GetAtom, ResolveSymbol,
// AddEdge, OutEdges, InEdges, TokenEstimate, and Stats.
//
// # Quick Start
//
// Open a store and put an atom:
//
//	store, err := storage.Open(storage.StoreConfig{
//	    DataDir:   "/path/to/data",
//	    Engine:    "rocksdb",
//	    ProjectID: "myproject",
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.PutAtom(ctx, a)
//
// # Schema
//
// The graph lives in these relations, created idempotently at open:
//   - cg_atom: atom metadata keyed by content-address
//   - cg_content: atom source text, same key
//   - cg_symbol: symbol name -> defining atoms, insertion-ordered
//   - cg_edge_out / cg_edge_in: typed edges, forward and reverse
//   - cg_manifest: schema version and atom id format
//   - cg_ingest_log: journal of uncommitted ingest batches
//
// A store whose manifest carries an unknown schema version refuses to
// open. Journal entries left by a crashed batch are replayed before the
// store is handed out, so a reader sees each batch in full or not at
// all.
//
// # Durability
//
// PutAtom and AddEdge each commit as a single CozoDB transaction: after
// a successful return, a subsequent open sees the write. Batched
// ingestion instead journals its mutation scripts under a batch id,
// executes them, and clears the journal as its commit point.
//
// # Query vs Execute
//
// On Backend, use Query for read operations and Execute for mutations:
//
//	// Read-only query (uses RunReadOnly internally)
//	result, err := backend.Query(ctx, `?[count(a)] := *cg_atom{id: a}`)
//
//	// Mutation (uses Run internally)
//	err := backend.Execute(ctx, `?[id] <- [["atom:sha256:ab"]] :rm cg_atom {id}`)
//
// # Thread Safety
//
// EmbeddedBackend is safe for concurrent use. Read operations use a read
// lock while write operations use an exclusive lock, allowing concurrent
// reads but exclusive writes. Store adds no locking of its own beyond
// the symbol sequence counter.
//
// # Direct Database Access
//
// For advanced operations, access the underlying CozoDB instance:
//
//	db := backend.DB()
//	result, err := db.Run(`::relations`, nil)  // List all relations
//
// Use with caution - prefer the Store and Backend methods for normal
// operations.
package storage
