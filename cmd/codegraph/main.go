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

// Package main implements the codegraph CLI for atomizing repositories
// and assembling virtual views from the content-addressed atom graph.
//
// Usage:
//
//	codegraph init                       Create .codegraph/project.yaml configuration
//	codegraph index                      Atomize the current repository
//	codegraph status [--json]            Show project status
//	codegraph query [--json] <script>    Execute CozoScript query
//	codegraph view <symbol|atom-id>      Assemble a virtual view
package main

import (
	"flag"
	"fmt"
	"os"
)

// Version information (set via ldflags during build)
var (
	version = "dev"     // Version string
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// GlobalFlags carries the flags every subcommand respects.
type GlobalFlags struct {
	Quiet   bool
	JSON    bool
	NoColor bool
	Verbose int
}

func main() {
	// Global flags
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to .codegraph/project.yaml (default: ./.codegraph/project.yaml)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `codegraph - content-addressed code registry CLI

Usage:
  codegraph <command> [options]

Commands:
  init          Create .codegraph/project.yaml configuration
  index         Atomize the current repository into the local graph
  status        Show project status
  query         Execute CozoScript query
  view          Assemble a virtual view from seed symbols or atom ids
  reset         Reset local project data (destructive!)
  install-hook  Install git post-commit hook for auto-indexing
  completion    Generate shell completion script

Global Options:
  --config      Path to .codegraph/project.yaml
  --version     Show version and exit

Examples:
  codegraph init                       Create configuration interactively
  codegraph index                      Atomize current repository
  codegraph status                     Show project status
  codegraph status --json              Output as JSON
  codegraph query "?[name] := *cg_atom{name}"
  codegraph view ParseFile --depth 2   View ParseFile plus its dependencies

Data Storage:
  Data is stored locally in ~/.codegraph/data/<project_id>/

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("codegraph version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs)
	case "index":
		runIndex(cmdArgs, *configPath)
	case "status":
		runStatus(cmdArgs, *configPath)
	case "query":
		runQuery(cmdArgs, *configPath)
	case "view":
		runView(cmdArgs, *configPath)
	case "reset":
		runReset(cmdArgs, *configPath)
	case "install-hook":
		runInstallHook(cmdArgs, *configPath)
	case "completion":
		runCompletion(cmdArgs, *configPath)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
