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
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the project configuration loaded from
// .codegraph/project.yaml.
type Config struct {
	// ProjectID namespaces the local data directory.
	ProjectID string `yaml:"project_id"`

	// Store configures the embedded graph store.
	Store StoreConfig `yaml:"store"`

	// Indexing configures the discovery walk and ingestion.
	Indexing IndexingConfig `yaml:"indexing"`

	// View holds default expansion-policy values for the view command.
	View ViewConfig `yaml:"view"`
}

// StoreConfig configures the embedded store.
type StoreConfig struct {
	// Engine is the CozoDB engine: rocksdb, sqlite, or mem.
	Engine string `yaml:"engine"`

	// DataDir overrides ~/.codegraph/data/<project_id>.
	DataDir string `yaml:"data_dir,omitempty"`

	// MaxAtomSize caps atom content in bytes (0 = 1 MiB default).
	MaxAtomSize int `yaml:"max_atom_size,omitempty"`
}

// IndexingConfig configures discovery and ingestion.
type IndexingConfig struct {
	// Exclude holds extra glob patterns on top of the built-in set.
	Exclude []string `yaml:"exclude,omitempty"`

	// MaxFileSize skips files larger than this many bytes.
	MaxFileSize int64 `yaml:"max_file_size,omitempty"`

	// ParseWorkers is the parse/extract worker pool size.
	ParseWorkers int `yaml:"parse_workers,omitempty"`

	// BatchTarget is the mutation count per committed batch.
	BatchTarget int `yaml:"batch_target,omitempty"`
}

// ViewConfig holds the default expansion policy for the view command.
type ViewConfig struct {
	MaxDepth           int      `yaml:"max_depth"`
	MaxAtoms           int      `yaml:"max_atoms"`
	MaxTokens          int      `yaml:"max_tokens"`
	Follow             []string `yaml:"follow,omitempty"`
	AlwaysIncludeTypes bool     `yaml:"always_include_types,omitempty"`
	SignaturesOnly     bool     `yaml:"signatures_only,omitempty"`
}

// DefaultConfig returns a configuration with sensible defaults for the
// given project id.
func DefaultConfig(projectID string) *Config {
	return &Config{
		ProjectID: projectID,
		Store: StoreConfig{
			Engine: "rocksdb",
		},
		Indexing: IndexingConfig{
			MaxFileSize:  2 << 20,
			ParseWorkers: 4,
			BatchTarget:  500,
		},
		View: ViewConfig{
			MaxDepth:  2,
			MaxAtoms:  20,
			MaxTokens: 4000,
			Follow:    []string{"Imports", "TypeRef"},
		},
	}
}

// ConfigDir returns the .codegraph directory under dir.
func ConfigDir(dir string) string {
	return filepath.Join(dir, ".codegraph")
}

// ConfigPath returns the project.yaml path under dir.
func ConfigPath(dir string) string {
	return filepath.Join(ConfigDir(dir), "project.yaml")
}

// LoadConfig reads configuration from path, or from
// ./.codegraph/project.yaml when path is empty.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get current directory: %w", err)
		}
		path = ConfigPath(cwd)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration not found at %s (run 'codegraph init' first)", path)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("config %s is missing project_id", path)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DataDir resolves the store data directory for cfg.
func (c *Config) DataDir() (string, error) {
	if c.Store.DataDir != "" {
		return c.Store.DataDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(homeDir, ".codegraph", "data", c.ProjectID), nil
}
