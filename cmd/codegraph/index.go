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

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/codegraph/pkg/ingestion"
)

// runIndex executes the 'index' CLI command, atomizing the repository
// into the local graph store.
//
// It parses source files with Tree-sitter, extracts atoms per language,
// commits them in journaled batches, and resolves references into
// edges. An flock-based lease prevents two index runs from interleaving
// their batches.
//
// Flags:
//   - --full: Delete existing data and reindex from scratch
//   - --parse-workers: Number of parallel parse workers (default: 4)
//   - --debug: Enable debug logging (default: false)
//   - --metrics-addr: HTTP address for Prometheus metrics (default: disabled)
//
// Examples:
//
//	codegraph index                   Atomize the repository
//	codegraph index --full            Reset and reindex everything
//	codegraph index --parse-workers 8 Use 8 parallel parse workers
func runIndex(args []string, configPath string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	full := fs.Bool("full", false, "Delete existing data and reindex from scratch")
	parseWorkers := fs.Int("parse-workers", 0, "Number of parallel parse workers (0 = config value)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codegraph index [options]

Atomizes the current repository using configuration from .codegraph/project.yaml.
Data is stored locally in ~/.codegraph/data/<project_id>/

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	// Load configuration
	cfg, err := LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Start Prometheus metrics endpoint (optional)
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	// Get current directory as repo path
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot get current directory: %v\n", err)
		os.Exit(1)
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Delete local data if a full reindex is requested
	if *full {
		if err := os.RemoveAll(dataDir); err == nil {
			logger.Info("data.deleted", "path", dataDir)
		} else if !os.IsNotExist(err) {
			logger.Warn("data.delete.error", "path", dataDir, "err", err)
		}
	}

	// Take the index lease: batched ingestion must not interleave with
	// another run's batches.
	lock, err := NewIndexLock(cfg.ProjectID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	acquired, err := lock.TryAcquire()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: acquire index lock: %v\n", err)
		os.Exit(1)
	}
	if !acquired {
		if info, _ := lock.Info(); info != nil {
			fmt.Fprintf(os.Stderr, "Error: another index run is active (pid %d)\n", info.PID)
		} else {
			fmt.Fprintf(os.Stderr, "Error: another index run is active\n")
		}
		os.Exit(1)
	}
	defer lock.Release()

	runLocalIndex(ctx, logger, cfg, cwd, dataDir, *parseWorkers)
}

// runLocalIndex executes the ingestion pipeline, writing results to the
// embedded graph store.
func runLocalIndex(ctx context.Context, logger *slog.Logger, cfg *Config, repoPath, dataDir string, parseWorkers int) {
	// Ensure checkpoint directory exists
	checkpointDir := filepath.Join(ConfigDir(repoPath), "checkpoints")
	if err := os.MkdirAll(checkpointDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot create checkpoint directory: %v\n", err)
		os.Exit(1)
	}

	// Combine default excludes with user-specified ones
	defaults := ingestion.DefaultConfig()
	excludeGlobs := append(defaults.ExcludeGlobs, cfg.Indexing.Exclude...)

	if parseWorkers <= 0 {
		parseWorkers = cfg.Indexing.ParseWorkers
	}
	maxFileSize := cfg.Indexing.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = defaults.MaxFileSizeBytes
	}
	batchTarget := cfg.Indexing.BatchTarget
	if batchTarget <= 0 {
		batchTarget = defaults.BatchTargetMutations
	}

	config := ingestion.Config{
		ProjectID: cfg.ProjectID,
		RepoSource: ingestion.RepoSource{
			Type:  "local_path",
			Value: repoPath,
		},
		IngestionConfig: ingestion.IngestionConfig{
			ExcludeGlobs:         excludeGlobs,
			MaxFileSizeBytes:     maxFileSize,
			MaxAtomSize:          cfg.Store.MaxAtomSize,
			BatchTargetMutations: batchTarget,
			MaxScriptSizeBytes:   defaults.MaxScriptSizeBytes,
			CheckpointPath:       checkpointDir,
			LocalDataDir:         dataDir,
			LocalEngine:          cfg.Store.Engine,
			Concurrency: ingestion.ConcurrencyConfig{
				ParseWorkers: parseWorkers,
			},
		},
	}

	pipeline, err := ingestion.NewLocalPipeline(config, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: create pipeline: %v\n", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	logger.Info("indexing.starting",
		"project_id", cfg.ProjectID,
		"repo_path", repoPath,
		"engine", cfg.Store.Engine,
	)

	result, err := pipeline.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: indexing failed: %v\n", err)
		os.Exit(1)
	}

	printResult(result, dataDir)
}

// printResult prints the indexing result summary to stdout.
func printResult(result *ingestion.IngestionResult, dataDir string) {
	fmt.Println()
	fmt.Println("=== Indexing Complete ===")
	fmt.Printf("Project ID: %s\n", result.ProjectID)
	fmt.Printf("Files Processed: %d\n", result.FilesProcessed)
	fmt.Printf("Atoms Added: %d\n", result.AtomsAdded)
	fmt.Printf("Edges Added: %d\n", result.EdgesAdded)

	if result.FilesSkipped > 0 {
		fmt.Printf("Files Skipped: %d\n", result.FilesSkipped)
	}
	if result.Cancelled {
		fmt.Println("Run cancelled before completion; counts cover committed work.")
	}
	if len(result.Warnings) > 0 {
		fmt.Printf("Warnings: %d\n", len(result.Warnings))
		for i, w := range result.Warnings {
			if i >= 10 {
				fmt.Printf("  ... and %d more\n", len(result.Warnings)-10)
				break
			}
			fmt.Printf("  %s\n", w)
		}
	}

	if len(result.TopSkipReasons) > 0 {
		fmt.Println("\nSkipped Files:")
		for reason, count := range result.TopSkipReasons {
			fmt.Printf("  %s: %d\n", reason, count)
		}
	}

	fmt.Println("\nTimings:")
	fmt.Printf("  Parse:   %s\n", result.ParseDuration)
	fmt.Printf("  Write:   %s\n", result.WriteDuration)
	fmt.Printf("  Resolve: %s\n", result.ResolveDuration)
	fmt.Printf("  Total:   %s\n", result.TotalDuration)
	fmt.Println()

	fmt.Printf("Data stored in: %s\n", dataDir)
}
