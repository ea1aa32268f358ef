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

package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"github.com/kraklabs/codegraph/pkg/atom"
	"github.com/kraklabs/codegraph/pkg/storage"
)

// parallelResolveThreshold is the reference count at or above which symbol
// lookups fan out to a worker pool instead of running in the calling
// goroutine.
const parallelResolveThreshold = 1000

// symbolResolver runs the post-extraction pass that turns each atom's
// reference names into edges against the now-indexed symbol table.
type symbolResolver struct {
	store  *storage.Store
	logger *slog.Logger
}

func newSymbolResolver(store *storage.Store, logger *slog.Logger) *symbolResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &symbolResolver{store: store, logger: logger}
}

// resolveJob is one (referencing atom, name) lookup.
type resolveJob struct {
	src      string
	hint     string
	name     string
	edgeType atom.EdgeType
}

// resolveResult is a lookup outcome: at most one of edge, warning, err.
type resolveResult struct {
	edge    *atom.Edge
	warning *atom.Warning
	err     error
}

// resolveBatch resolves the references of every atom in the batch. The
// atom's own source path is the resolution hint, so a name defined in
// several modules binds to the referencing file's module. The reference
// kind recorded by the extractor picks the edge type: type positions
// become TypeRef, call positions Calls, everything else Imports.
//
// Names that resolve to nothing leave no edge and are not errors (they
// are usually standard-library or external identifiers). Ambiguity that
// the hint cannot break is recorded as a warning, never guessed.
//
// Lookups are read-only against the store, so large batches fan out to
// a bounded worker pool; small ones stay sequential to skip the
// goroutine overhead. Either way the edge writes run serially
// afterwards, deduplicated by (src, type, dst). Returns the number of
// edges created.
func (r *symbolResolver) resolveBatch(ctx context.Context, atoms []atom.Atom, refKinds []map[string]atom.EdgeType) (int, []atom.Warning, error) {
	var jobs []resolveJob
	for i, a := range atoms {
		for _, name := range a.References {
			edgeType := atom.Imports
			if refKinds != nil && refKinds[i] != nil {
				if t, ok := refKinds[i][name]; ok {
					edgeType = t
				}
			}
			jobs = append(jobs, resolveJob{
				src:      a.ID,
				hint:     a.SourcePath,
				name:     name,
				edgeType: edgeType,
			})
		}
	}

	var results []resolveResult
	var err error
	if len(jobs) < parallelResolveThreshold {
		results, err = r.resolveSequential(ctx, jobs)
	} else {
		results, err = r.resolveParallel(ctx, jobs)
	}
	if err != nil {
		return 0, nil, err
	}

	// Write phase: edge mutations serialize at the store anyway, and a
	// seen-key set keeps repeated references from re-putting the same
	// edge.
	var warnings []atom.Warning
	seen := make(map[string]bool)
	edgesAdded := 0
	for _, res := range results {
		if res.err != nil {
			return edgesAdded, warnings, res.err
		}
		if res.warning != nil {
			warnings = append(warnings, *res.warning)
			continue
		}
		if res.edge == nil {
			continue
		}
		e := *res.edge
		edgeKey := e.Src + "|" + string(e.Type) + "|" + e.Dst
		if seen[edgeKey] {
			continue
		}
		seen[edgeKey] = true

		if err := r.store.AddEdge(ctx, e.Src, e.Type, e.Dst); err != nil {
			var nf *atom.NotFoundError
			if errors.As(err, &nf) {
				// The endpoint vanished between resolution and the
				// write (concurrent eviction); skip quietly.
				continue
			}
			return edgesAdded, warnings, err
		}
		edgesAdded++
	}

	return edgesAdded, warnings, nil
}

// resolveOne performs a single symbol lookup.
func (r *symbolResolver) resolveOne(ctx context.Context, job resolveJob) resolveResult {
	targetID, err := r.store.ResolveSymbol(ctx, job.name, job.hint)
	if err != nil {
		var ambiguous *atom.AmbiguousSymbolError
		if errors.As(err, &ambiguous) {
			return resolveResult{warning: &atom.Warning{
				Kind:       atom.WarnAmbiguous,
				SourcePath: job.hint,
				Detail:     ambiguous.Error(),
			}}
		}
		return resolveResult{err: err}
	}
	if targetID == "" || targetID == job.src {
		return resolveResult{}
	}
	return resolveResult{edge: &atom.Edge{Src: job.src, Type: job.edgeType, Dst: targetID}}
}

// resolveSequential runs the lookups in the calling goroutine (for
// small batches).
func (r *symbolResolver) resolveSequential(ctx context.Context, jobs []resolveJob) ([]resolveResult, error) {
	results := make([]resolveResult, 0, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, r.resolveOne(ctx, job))
	}
	return results, nil
}

// resolveParallel fans the lookups out to a worker pool. Lookups only
// read the store (reads take shared access), so concurrent workers are
// safe; workers are capped at min(NumCPU, 8).
func (r *symbolResolver) resolveParallel(ctx context.Context, jobs []resolveJob) ([]resolveResult, error) {
	numWorkers := runtime.NumCPU()
	if numWorkers > 8 {
		numWorkers = 8 // Cap at 8 workers
	}

	// Channel for jobs (indices into jobs)
	jobCh := make(chan int, len(jobs))

	// Channel for results
	resultCh := make(chan resolveResult, len(jobs))

	// Start workers
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				select {
				case <-ctx.Done():
					resultCh <- resolveResult{err: ctx.Err()}
					continue
				default:
				}
				resultCh <- r.resolveOne(ctx, jobs[i])
			}
		}()
	}

	// Send jobs
	for i := range jobs {
		jobCh <- i
	}
	close(jobCh)

	// Wait for workers and close results
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Collect in completion order; the write phase handles dedup.
	results := make([]resolveResult, 0, len(jobs))
	for res := range resultCh {
		results = append(results, res)
	}
	return results, nil
}
