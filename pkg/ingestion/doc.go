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

// Package ingestion provides the atomization pipeline for the code
// registry.
//
// The pipeline is responsible for reading source files, decomposing
// them into atoms at syntactic boundaries, storing the atoms in the
// content-addressed graph, and resolving each atom's references into
// typed edges.
//
// # Pipeline Overview
//
// The pipeline processes code in four stages:
//
//  1. Discovery: Find source files using configurable glob patterns
//  2. Atomization: Parse with Tree-sitter and extract atoms per language
//  3. Storage: Commit atoms, content, and containment edges in
//     journaled batches to CozoDB
//  4. Resolution: Resolve references into Imports/TypeRef/Calls edges
//     once the batch's symbols are indexed
//
// Parsing and extraction for distinct files run in parallel on a
// worker pool; the resolution pass runs strictly after the batch
// commits, so every atom a resolver looks up is durably visible.
//
// # Supported Languages
//
// The following languages are supported with Tree-sitter parsing:
//   - Go (.go)
//   - Python (.py)
//   - TypeScript (.ts, .tsx)
//   - JavaScript (.js, .jsx)
//   - Rust (.rs)
//
// Files in other languages are counted as skipped, never errors.
//
// # Quick Start
//
// Create and run a local pipeline:
//
//	config := ingestion.Config{
//	    ProjectID: "my-project",
//	    RepoSource: ingestion.RepoSource{
//	        Type:  "local_path",
//	        Value: "/path/to/repo",
//	    },
//	    IngestionConfig: ingestion.DefaultConfig(),
//	}
//
//	pipeline, err := ingestion.NewLocalPipeline(config, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pipeline.Close()
//
//	result, err := pipeline.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Indexed %d files, %d atoms, %d edges\n",
//	    result.FilesProcessed, result.AtomsAdded, result.EdgesAdded)
//
// Callers that already hold raw bytes (a registry transport, tests)
// skip discovery and call Ingest directly with a batch of FileRecords.
//
// # Failure Model
//
// A file the parser cannot handle is skipped with a warning attached
// to the result; the rest of the batch proceeds. Oversized atoms and
// unresolvable-ambiguous symbols likewise degrade to warnings. Storage
// faults abort the run: the in-flight batch is rolled back and its
// journal cleared, and a batch cut short by a crash is replayed from
// the store's journal at next open. Cancellation through the context returns
// the partial result with Cancelled set.
package ingestion
