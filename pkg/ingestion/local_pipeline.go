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

package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/kraklabs/codegraph/internal/contract"
	"github.com/kraklabs/codegraph/pkg/atom"
	"github.com/kraklabs/codegraph/pkg/extract"
	"github.com/kraklabs/codegraph/pkg/parse"
	"github.com/kraklabs/codegraph/pkg/storage"
)

// LocalPipeline orchestrates ingestion into a local graph store:
// discovery, parallel parse and extraction, batched durable writes, and
// the symbol-resolution pass that turns references into edges.
type LocalPipeline struct {
	config        Config
	logger        *slog.Logger
	repoLoader    *RepoLoader
	store         *storage.Store
	checkpointMgr *CheckpointManager
	batcher       *Batcher
	builder       *storage.DatalogBuilder
}

// FileRecord is one entry of an ingestion batch: raw bytes plus the
// language tag the caller assigned.
type FileRecord struct {
	SourcePath string
	Language   atom.Language
	Content    []byte
}

// IngestionResult summarizes an ingestion run for the CLI; the embedded
// IngestResult is the core operation's contract.
type IngestionResult struct {
	atom.IngestResult

	// ProjectID is the unique identifier for the indexed project.
	ProjectID string

	// RunID is the identifier for this ingestion run.
	RunID string

	// FilesProcessed is the number of files that produced atoms or
	// completed cleanly with none.
	FilesProcessed int

	// Cancelled reports that the run was stopped by the caller's
	// context; counts cover the work committed before the stop.
	Cancelled bool

	// TopSkipReasons maps discovery skip reasons to counts.
	TopSkipReasons map[string]int

	// ParseDuration is the time spent parsing and extracting.
	ParseDuration time.Duration

	// WriteDuration is the time spent committing batches.
	WriteDuration time.Duration

	// ResolveDuration is the time spent in the symbol-resolution pass.
	ResolveDuration time.Duration

	// TotalDuration is the total time for the run.
	TotalDuration time.Duration
}

// NewLocalPipeline creates a new local ingestion pipeline.
func NewLocalPipeline(config Config, logger *slog.Logger) (*LocalPipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	repoLoader := NewRepoLoader(logger)

	store, err := storage.Open(storage.StoreConfig{
		DataDir:     config.IngestionConfig.LocalDataDir,
		Engine:      config.IngestionConfig.LocalEngine,
		ProjectID:   config.ProjectID,
		MaxAtomSize: config.IngestionConfig.MaxAtomSize,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	targetMutations := config.IngestionConfig.BatchTargetMutations
	if targetMutations <= 0 {
		targetMutations = DefaultConfig().BatchTargetMutations
	}
	maxScriptSize := config.IngestionConfig.MaxScriptSizeBytes
	if maxScriptSize <= 0 {
		maxScriptSize = DefaultConfig().MaxScriptSizeBytes
	}

	return &LocalPipeline{
		config:        config,
		logger:        logger,
		repoLoader:    repoLoader,
		store:         store,
		checkpointMgr: NewCheckpointManager(config.IngestionConfig.CheckpointPath),
		batcher:       NewBatcher(targetMutations, maxScriptSize),
		builder:       storage.NewDatalogBuilder(),
	}, nil
}

// Close cleans up resources.
func (p *LocalPipeline) Close() error {
	var lastErr error
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			lastErr = err
		}
	}
	if p.repoLoader != nil {
		if err := p.repoLoader.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Store returns the underlying graph store.
func (p *LocalPipeline) Store() *storage.Store {
	return p.store
}

// generateRunID generates a deterministic run ID for log correlation.
func (p *LocalPipeline) generateRunID(startTime time.Time) string {
	roundedTime := startTime.Truncate(time.Second)
	baseID := fmt.Sprintf("run-%s-%d", p.config.ProjectID, roundedTime.Unix())
	hash := sha256.Sum256([]byte(baseID))
	return hex.EncodeToString(hash[:16])
}

// Run executes the full pipeline: walk the configured repository, read
// every discovered file, and ingest the batch.
func (p *LocalPipeline) Run(ctx context.Context) (*IngestionResult, error) {
	startTime := time.Now()
	runID := p.generateRunID(startTime)
	p.logger.Info("ingestion.start", "project_id", p.config.ProjectID, "run_id", runID)

	loadResult, err := p.repoLoader.LoadRepository(
		p.config.RepoSource,
		p.config.IngestionConfig.ExcludeGlobs,
		p.config.IngestionConfig.MaxFileSizeBytes,
	)
	if err != nil {
		return nil, fmt.Errorf("load repository: %w", err)
	}

	// Sort files by path for deterministic processing
	sort.Slice(loadResult.Files, func(i, j int) bool {
		return loadResult.Files[i].Path < loadResult.Files[j].Path
	})

	skipReasons := loadResult.SkipReasons
	var records []FileRecord
	for _, f := range loadResult.Files {
		if f.Language == "" {
			skipReasons["unsupported_language"]++
			continue
		}
		content, err := os.ReadFile(f.FullPath)
		if err != nil {
			p.logger.Warn("ingestion.read_file.error", "path", f.Path, "err", err)
			skipReasons["unreadable"]++
			continue
		}
		records = append(records, FileRecord{
			SourcePath: f.Path,
			Language:   atom.Language(f.Language),
			Content:    content,
		})
	}

	result, err := p.Ingest(ctx, records)
	if err != nil {
		return nil, err
	}
	result.RunID = runID
	result.TopSkipReasons = skipReasons
	result.TotalDuration = time.Since(startTime)

	if result.Cancelled {
		if err := p.checkpointMgr.SaveCheckpoint(&Checkpoint{
			ProjectID:      p.config.ProjectID,
			RunID:          runID,
			FilesProcessed: result.FilesProcessed,
			AtomsAdded:     result.AtomsAdded,
			EdgesAdded:     result.EdgesAdded,
			StartTime:      startTime.Format(time.RFC3339),
			LastUpdateTime: time.Now().Format(time.RFC3339),
		}); err != nil {
			p.logger.Warn("ingestion.checkpoint.save.error", "err", err)
		}
	} else if err := p.checkpointMgr.ClearCheckpoint(p.config.ProjectID); err != nil {
		p.logger.Warn("ingestion.checkpoint.clear.error", "err", err)
	}

	p.logger.Info("ingestion.complete",
		"project_id", p.config.ProjectID,
		"run_id", runID,
		"files", result.FilesProcessed,
		"atoms_added", result.AtomsAdded,
		"edges_added", result.EdgesAdded,
		"files_skipped", result.FilesSkipped,
		"warnings", len(result.Warnings),
		"total_duration_ms", result.TotalDuration.Milliseconds(),
	)

	return result, nil
}

// fileExtraction is one file's extraction output, kept in input order.
type fileExtraction struct {
	record FileRecord
	result *extract.Result
	err    error
}

// Ingest runs the core ingestion operation over an ordered batch of
// file records: parse and extract in parallel, commit atoms and
// containment edges through the journaled batch path, then resolve
// references into edges. A file that fails to parse is skipped with a
// warning; the rest of the batch proceeds. On cancellation the
// uncommitted remainder is rolled back and the partial result is
// returned with Cancelled set.
func (p *LocalPipeline) Ingest(ctx context.Context, records []FileRecord) (*IngestionResult, error) {
	startTime := time.Now()
	result := &IngestionResult{ProjectID: p.config.ProjectID}

	parseStart := time.Now()
	extractions := p.extractParallel(ctx, records)
	result.ParseDuration = time.Since(parseStart)

	// Collect atoms and containment edges in emission order, filtering
	// out parse failures and oversized atoms.
	var newAtoms []atom.Atom
	var refKinds []map[string]atom.EdgeType
	var edges []atom.Edge
	stored := make(map[string]bool)

	for _, fe := range extractions {
		if fe.err != nil {
			var parseErr *atom.ParseError
			if errors.As(fe.err, &parseErr) {
				result.Warnings = append(result.Warnings, atom.Warning{
					Kind:       atom.WarnParse,
					SourcePath: fe.record.SourcePath,
					Detail:     parseErr.Diagnostic,
				})
			} else {
				result.Warnings = append(result.Warnings, atom.Warning{
					Kind:       atom.WarnParse,
					SourcePath: fe.record.SourcePath,
					Detail:     fe.err.Error(),
				})
			}
			result.FilesSkipped++
			ingMetrics.init()
			ingMetrics.parseErrors.Inc()
			continue
		}
		result.FilesProcessed++
		result.Warnings = append(result.Warnings, fe.result.Warnings...)

		for i, a := range fe.result.Atoms {
			if len(a.Content) > p.store.MaxAtomSize() {
				result.Warnings = append(result.Warnings, atom.Warning{
					Kind:       atom.WarnOversized,
					SourcePath: a.SourcePath,
					Detail:     fmt.Sprintf("%s is %d bytes, cap is %d", a.Name, len(a.Content), p.store.MaxAtomSize()),
				})
				continue
			}
			if !stored[a.ID] {
				stored[a.ID] = true
				newAtoms = append(newAtoms, a)
				refKinds = append(refKinds, fe.result.RefKinds[i])
			}
		}
		edges = append(edges, fe.result.Edges...)
	}

	// Drop containment edges whose endpoint was skipped.
	kept := edges[:0]
	for _, e := range edges {
		if stored[e.Src] && stored[e.Dst] {
			kept = append(kept, e)
		}
	}
	edges = kept

	if err := ctx.Err(); err != nil {
		result.Cancelled = true
		result.TotalDuration = time.Since(startTime)
		return result, nil
	}

	// Commit everything through the journaled batch path.
	writeStart := time.Now()
	batchID := fmt.Sprintf("batch-%d", startTime.UnixNano())
	committed, err := p.commitBatch(ctx, batchID, newAtoms, edges)
	result.WriteDuration = time.Since(writeStart)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result.Cancelled = true
			result.TotalDuration = time.Since(startTime)
			return result, nil
		}
		return nil, err
	}
	if committed {
		result.AtomsAdded = len(newAtoms)
		result.EdgesAdded = len(edges)
	}

	// Resolution pass: every atom a resolver looks up is durably
	// visible by now because the batch committed above.
	resolveStart := time.Now()
	resolver := newSymbolResolver(p.store, p.logger)
	resolved, warnings, err := resolver.resolveBatch(ctx, newAtoms, refKinds)
	result.ResolveDuration = time.Since(resolveStart)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result.Cancelled = true
			result.TotalDuration = time.Since(startTime)
			return result, nil
		}
		return nil, err
	}
	result.EdgesAdded += resolved
	result.Warnings = append(result.Warnings, warnings...)

	result.TotalDuration = time.Since(startTime)

	ingMetrics.init()
	ingMetrics.filesProcessed.Add(float64(result.FilesProcessed))
	ingMetrics.atomsAdded.Add(float64(result.AtomsAdded))
	ingMetrics.edgesAdded.Add(float64(result.EdgesAdded))
	ingMetrics.warnings.Add(float64(len(result.Warnings)))
	ingMetrics.parseDuration.Observe(result.ParseDuration.Seconds())
	ingMetrics.writeDuration.Observe(result.WriteDuration.Seconds())
	ingMetrics.totalDuration.Observe(result.TotalDuration.Seconds())

	return result, nil
}

// commitBatch journals, executes, and commits the mutation scripts for
// a batch. Returns false without error when there was nothing to write.
// On failure or cancellation mid-batch the already-executed part is
// rolled back and the journal cleared.
func (p *LocalPipeline) commitBatch(ctx context.Context, batchID string, atoms []atom.Atom, edges []atom.Edge) (bool, error) {
	var script string
	seqBase := p.store.ReserveSymbolSeq(countDefines(atoms))
	for _, a := range atoms {
		script += p.builder.BuildAtomPut(a, seqBase)
		seqBase += int64(len(a.Defines))
	}
	for _, e := range edges {
		script += p.builder.BuildEdgePut(e)
	}
	if script == "" {
		return false, nil
	}

	batches, err := p.batcher.Batch(script)
	if err != nil {
		return false, fmt.Errorf("batch mutations: %w", err)
	}
	for _, batch := range batches {
		if v := contract.ValidateBatchScript(batch); !v.OK {
			return false, fmt.Errorf("batch validation: %s", v.Message)
		}
	}

	if err := p.store.JournalAppend(ctx, batchID, batches); err != nil {
		return false, err
	}

	backend := p.store.Backend()
	for _, batch := range batches {
		if err := ctx.Err(); err == nil {
			err = backend.Execute(ctx, batch)
		}
		if err != nil {
			p.logger.Error("ingestion.batch.abort", "batch_id", batchID, "err", err)
			p.rollbackBatch(atoms, edges)
			_ = p.store.JournalClear(context.Background(), batchID)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false, err
			}
			return false, &atom.StorageFaultError{Op: "commit batch", Err: err}
		}
	}

	if err := p.store.JournalClear(ctx, batchID); err != nil {
		return false, err
	}
	ingMetrics.init()
	ingMetrics.batchesCommitted.Inc()
	return true, nil
}

// rollbackBatch removes whatever part of an aborted batch already
// landed. Runs under a fresh context: the triggering one is usually
// already cancelled.
func (p *LocalPipeline) rollbackBatch(atoms []atom.Atom, edges []atom.Edge) {
	defines := make(map[string][]string, len(atoms))
	del := storage.DeletionSet{Edges: edges}
	for _, a := range atoms {
		del.AtomIDs = append(del.AtomIDs, a.ID)
		defines[a.ID] = a.Defines
	}
	script := p.builder.BuildDeletions(del, defines)
	if script == "" {
		return
	}
	if err := p.store.Backend().Execute(context.Background(), script); err != nil {
		p.logger.Error("ingestion.rollback.error", "err", err)
	}
}

func countDefines(atoms []atom.Atom) int {
	n := 0
	for _, a := range atoms {
		n += len(a.Defines)
	}
	return n
}

// extractParallel parses and extracts the records on a worker pool,
// preserving input order in the returned slice. Each worker owns its
// own parser registry: tree-sitter parsers are not safe to share.
func (p *LocalPipeline) extractParallel(ctx context.Context, records []FileRecord) []fileExtraction {
	out := make([]fileExtraction, len(records))
	if len(records) == 0 {
		return out
	}

	numWorkers := p.config.IngestionConfig.Concurrency.ParseWorkers
	if numWorkers <= 0 {
		numWorkers = DefaultConfig().Concurrency.ParseWorkers
	}
	if len(records) < 10 || numWorkers <= 1 {
		registry := parse.NewRegistry()
		for i, rec := range records {
			out[i] = extractOne(ctx, registry, rec)
		}
		return out
	}

	jobs := make(chan int, len(records))
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry := parse.NewRegistry()
			for i := range jobs {
				select {
				case <-ctx.Done():
					out[i] = fileExtraction{record: records[i], err: ctx.Err()}
					continue
				default:
				}
				out[i] = extractOne(ctx, registry, records[i])
			}
		}()
	}
	for i := range records {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return out
}

func extractOne(ctx context.Context, registry *parse.Registry, rec FileRecord) fileExtraction {
	tree, err := registry.Parse(ctx, rec.Language, rec.Content)
	if err != nil {
		return fileExtraction{record: rec, err: err}
	}
	defer tree.Close()

	res, err := extract.File(rec.Language, rec.SourcePath, rec.Content, tree.RootNode())
	if err != nil {
		return fileExtraction{record: rec, err: err}
	}
	return fileExtraction{record: rec, result: res}
}
