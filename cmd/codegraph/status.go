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
	"os"
	"time"

	"github.com/kraklabs/codegraph/internal/bootstrap"
	"github.com/kraklabs/codegraph/internal/output"
)

// StatusResult represents the project status for JSON output.
type StatusResult struct {
	ProjectID    string    `json:"project_id"`
	DataDir      string    `json:"data_dir"`
	Connected    bool      `json:"connected"`
	Atoms        int       `json:"atoms"`
	Edges        int       `json:"edges"`
	Symbols      int       `json:"symbols"`
	ContentBytes int64     `json:"content_bytes"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// runStatus executes the 'status' CLI command, displaying graph
// statistics: atoms, edges, distinct symbols, and content bytes.
//
// Flags:
//   - --json: Output results as JSON (default: false)
//
// Examples:
//
//	codegraph status           Display formatted status
//	codegraph status --json    Output as JSON for programmatic use
func runStatus(args []string, configPath string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codegraph status [options]

Shows local project status.

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
		if *jsonOutput {
			_ = output.JSON(&StatusResult{
				Connected: false,
				Error:     err.Error(),
				Timestamp: time.Now(),
			})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	result := &StatusResult{
		ProjectID: cfg.ProjectID,
		DataDir:   dataDir,
		Timestamp: time.Now(),
	}

	// Check if data directory exists
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		result.Connected = false
		result.Error = "Project not indexed yet. Run 'codegraph index' first."
		if *jsonOutput {
			_ = output.JSON(result)
		} else {
			fmt.Printf("Project '%s' not indexed yet.\n", cfg.ProjectID)
			fmt.Println("Run 'codegraph index' to atomize the repository.")
		}
		os.Exit(0)
	}

	// Open the graph store
	store, err := bootstrap.OpenProject(bootstrap.ProjectConfig{
		ProjectID: cfg.ProjectID,
		DataDir:   dataDir,
		Engine:    cfg.Store.Engine,
	}, nil)
	if err != nil {
		result.Connected = false
		result.Error = fmt.Sprintf("Cannot open store: %v", err)
		if *jsonOutput {
			_ = output.JSON(result)
		} else {
			fmt.Fprintf(os.Stderr, "Error: cannot open store: %v\n", err)
		}
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	result.Connected = true
	stats, err := store.Stats(context.Background())
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Atoms = stats.Atoms
		result.Edges = stats.Edges
		result.Symbols = stats.Symbols
		result.ContentBytes = stats.ContentBytes
	}

	if *jsonOutput {
		_ = output.JSON(result)
	} else {
		printLocalStatus(result)
	}
}

// printLocalStatus prints the status result as formatted text to stdout.
func printLocalStatus(result *StatusResult) {
	fmt.Println("Codegraph Project Status")
	fmt.Println("========================")
	fmt.Printf("Project ID:    %s\n", result.ProjectID)
	fmt.Printf("Data Dir:      %s\n", result.DataDir)
	fmt.Println()

	fmt.Println("Graph:")
	fmt.Printf("  Atoms:         %d\n", result.Atoms)
	fmt.Printf("  Edges:         %d\n", result.Edges)
	fmt.Printf("  Symbols:       %d\n", result.Symbols)
	fmt.Printf("  Content Bytes: %d\n", result.ContentBytes)

	if result.Error != "" {
		fmt.Printf("\nWarning: %s\n", result.Error)
	}
}
