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

// Config is the full configuration for an ingestion pipeline.
type Config struct {
	// ProjectID is the logical project identifier, used to namespace
	// the local data directory.
	ProjectID string

	// RepoSource identifies the repository to ingest.
	RepoSource RepoSource

	// IngestionConfig holds tuning knobs.
	IngestionConfig IngestionConfig
}

// ConcurrencyConfig controls worker pool sizes.
type ConcurrencyConfig struct {
	// ParseWorkers is the number of parallel parse/extract workers.
	ParseWorkers int
}

// IngestionConfig holds the tuning knobs for ingestion.
type IngestionConfig struct {
	// ExcludeGlobs are path patterns skipped during repository walk.
	ExcludeGlobs []string

	// MaxFileSizeBytes skips files larger than this during the walk.
	MaxFileSizeBytes int64

	// MaxAtomSize caps individual atom content in bytes; larger atoms
	// are skipped with a warning. Zero uses the store default.
	MaxAtomSize int

	// BatchTargetMutations is the number of mutation statements per
	// committed batch script.
	BatchTargetMutations int

	// MaxScriptSizeBytes bounds a single batch script.
	MaxScriptSizeBytes int

	// CheckpointPath is the directory for ingestion checkpoints.
	CheckpointPath string

	// LocalDataDir overrides the store data directory.
	LocalDataDir string

	// LocalEngine selects the CozoDB engine ("rocksdb", "sqlite", "mem").
	LocalEngine string

	// Concurrency holds worker pool sizes.
	Concurrency ConcurrencyConfig
}

// DefaultConfig returns the ingestion defaults: common build and
// dependency directories excluded, 2 MiB file cut-off, 500 mutations
// per batch under a 2 MiB script bound.
func DefaultConfig() IngestionConfig {
	return IngestionConfig{
		ExcludeGlobs: []string{
			".git/**",
			"node_modules/**",
			"vendor/**",
			"target/**",
			"dist/**",
			"build/**",
			"__pycache__/**",
			".venv/**",
			"*.min.js",
			"testdata/**",
		},
		MaxFileSizeBytes:     2 << 20,
		BatchTargetMutations: 500,
		MaxScriptSizeBytes:   2 << 20,
		Concurrency: ConcurrencyConfig{
			ParseWorkers: 4,
		},
	}
}
