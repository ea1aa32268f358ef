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
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kraklabs/codegraph/internal/output"
	"github.com/kraklabs/codegraph/internal/ui"
	"github.com/kraklabs/codegraph/pkg/atom"
	"github.com/kraklabs/codegraph/pkg/storage"
	"github.com/kraklabs/codegraph/pkg/view"
)

// ViewResult is the JSON shape of an assembled view.
type ViewResult struct {
	Source          string         `json:"source"`
	Atoms           []string       `json:"atoms"`
	SymbolLocations map[string]int `json:"symbol_locations"`
	TokenEstimate   int            `json:"token_estimate"`
	Language        string         `json:"language"`
	Missing         []string       `json:"missing,omitempty"`
	Cancelled       bool           `json:"cancelled,omitempty"`
}

// runView executes the 'view' CLI command, assembling a virtual view
// from seed symbols or atom ids plus their transitive dependencies.
//
// Seeds may be atom ids (atom:<alg>:<hex>) or symbol names; names are
// resolved through the symbol index first.
//
// Examples:
//
//	codegraph view ParseFile                       View one symbol with default expansion
//	codegraph view ParseFile --depth 1             The seed plus direct dependencies
//	codegraph view Handler --follow Calls,TypeRef  Follow call and type edges
//	codegraph view Config --signatures-only        Elide ghost bodies
func runView(args []string, configPath string) {
	fs := pflag.NewFlagSet("view", pflag.ExitOnError)
	depth := fs.Int("depth", 0, "Maximum expansion depth (0 = config default)")
	maxAtoms := fs.Int("max-atoms", 0, "Cap on total atoms including seeds (0 = config default)")
	maxTokens := fs.Int("max-tokens", 0, "Cap on summed token estimates (0 = config default)")
	follow := fs.String("follow", "", "Comma-separated edge types to follow (Imports,TypeRef,Calls,ComposedOf,Exports)")
	alwaysTypes := fs.Bool("always-include-types", false, "Keep following TypeRef edges past the depth cap")
	signaturesOnly := fs.Bool("signatures-only", false, "Render ghost atoms as signature projections")
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	hint := fs.String("hint", "", "Source-path hint for resolving ambiguous symbol seeds")
	timeout := fs.Duration("timeout", 30*time.Second, "View assembly timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codegraph view [options] <symbol|atom-id> [...]

Assembles a virtual view: the seed atoms plus the transitive
dependencies the expansion policy admits, concatenated into one
buffer with a symbol-location map.

Options:
%s
Examples:
  codegraph view ParseFile
  codegraph view ParseFile --depth 1 --follow Calls
  codegraph view atom:sha256:3b4f... --json
  codegraph view Handler --signatures-only --max-tokens 2000

`, fs.FlagUsages())
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: at least one symbol or atom id required\n")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	dataDir, err := cfg.DataDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.Open(storage.StoreConfig{
		DataDir:   dataDir,
		Engine:    cfg.Store.Engine,
		ProjectID: cfg.ProjectID,
	}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot open store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Resolve symbol seeds through the index; pass atom ids straight
	// through.
	var seeds []string
	for _, arg := range fs.Args() {
		if strings.HasPrefix(arg, atom.IDPrefix+":") {
			seeds = append(seeds, arg)
			continue
		}
		id, err := store.ResolveSymbol(ctx, arg, *hint)
		if err != nil {
			var ambiguous *atom.AmbiguousSymbolError
			if errors.As(err, &ambiguous) {
				ui.Errorf("symbol %q is ambiguous (%d definitions); pass --hint <source-path>", arg, len(ambiguous.Candidates))
				for _, c := range ambiguous.Candidates {
					fmt.Fprintf(os.Stderr, "  %s\n", c)
				}
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "Error: resolve %q: %v\n", arg, err)
			os.Exit(1)
		}
		if id == "" {
			ui.Errorf("symbol %q not found in the index", arg)
			os.Exit(1)
		}
		seeds = append(seeds, id)
	}

	pol := policyFromConfig(cfg)
	if *depth > 0 {
		pol.MaxDepth = *depth
	}
	if *maxAtoms > 0 {
		pol.MaxAtoms = *maxAtoms
	}
	if *maxTokens > 0 {
		pol.MaxTokens = *maxTokens
	}
	if *follow != "" {
		pol.Follow = nil
		for _, t := range strings.Split(*follow, ",") {
			pol.Follow = append(pol.Follow, atom.EdgeType(strings.TrimSpace(t)))
		}
	}
	if *alwaysTypes {
		pol.AlwaysIncludeTypes = true
	}
	if *signaturesOnly {
		pol.SignaturesOnly = true
	}

	v, err := view.Build(ctx, store, seeds, pol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: assemble view: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		_ = output.JSON(&ViewResult{
			Source:          v.Source,
			Atoms:           v.Atoms,
			SymbolLocations: v.SymbolLocations,
			TokenEstimate:   v.TokenEstimate,
			Language:        string(v.Language),
			Missing:         v.Missing,
			Cancelled:       v.Cancelled,
		})
		return
	}

	fmt.Print(v.Source)
	fmt.Fprintf(os.Stderr, "\n%d atoms, ~%d tokens", len(v.Atoms), v.TokenEstimate)
	if len(v.Missing) > 0 {
		fmt.Fprintf(os.Stderr, ", %d missing", len(v.Missing))
	}
	if v.Cancelled {
		fmt.Fprint(os.Stderr, " (cancelled)")
	}
	fmt.Fprintln(os.Stderr)
}

// policyFromConfig converts the YAML view defaults into an expansion
// policy, falling back to the built-in defaults for zero values.
func policyFromConfig(cfg *Config) atom.ExpansionPolicy {
	pol := atom.DefaultExpansionPolicy()
	if cfg.View.MaxDepth > 0 {
		pol.MaxDepth = cfg.View.MaxDepth
	}
	if cfg.View.MaxAtoms > 0 {
		pol.MaxAtoms = cfg.View.MaxAtoms
	}
	if cfg.View.MaxTokens > 0 {
		pol.MaxTokens = cfg.View.MaxTokens
	}
	if len(cfg.View.Follow) > 0 {
		pol.Follow = nil
		for _, t := range cfg.View.Follow {
			pol.Follow = append(pol.Follow, atom.EdgeType(t))
		}
	}
	pol.AlwaysIncludeTypes = cfg.View.AlwaysIncludeTypes
	pol.SignaturesOnly = cfg.View.SignaturesOnly
	return pol
}
