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
	"flag"
	"fmt"
	"os"

	"github.com/kraklabs/codegraph/internal/errors"
)

// bashCompletionTemplate is the bash completion script for codegraph.
//
// It provides command and flag completion for bash shells using the
// bash completion framework.
const bashCompletionTemplate = `#!/bin/bash

# Bash completion script for codegraph
# Installation:
#   source <(codegraph completion bash)
#   Or add to ~/.bashrc:
#   echo 'source <(codegraph completion bash)' >> ~/.bashrc

_codegraph_completion() {
    local cur prev commands
    commands="init index status query view reset install-hook completion"

    # Current word being completed
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    # Global flags
    if [[ ${cur} == -* ]] ; then
        COMPREPLY=( $(compgen -W "--version --config" -- ${cur}) )
        return 0
    fi

    # First argument: complete commands
    if [ $COMP_CWORD -eq 1 ]; then
        COMPREPLY=( $(compgen -W "${commands}" -- ${cur}) )
        return 0
    fi

    # Command-specific flag completion
    local cmd="${COMP_WORDS[1]}"
    case "${cmd}" in
        index)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--full --parse-workers --debug --metrics-addr" -- ${cur}) )
            fi
            ;;
        status)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--json" -- ${cur}) )
            fi
            ;;
        query)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--json --limit --timeout" -- ${cur}) )
            fi
            ;;
        view)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--depth --max-atoms --max-tokens --follow --always-include-types --signatures-only --hint --json" -- ${cur}) )
            fi
            ;;
        reset)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--yes" -- ${cur}) )
            fi
            ;;
        install-hook)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--force --remove" -- ${cur}) )
            fi
            ;;
        completion)
            # Complete shell names for completion command
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            fi
            ;;
    esac
}

complete -F _codegraph_completion codegraph
`

// zshCompletionTemplate is the zsh completion script for codegraph.
//
// It provides command and flag completion for zsh shells using the
// zsh completion system.
const zshCompletionTemplate = `#compdef codegraph

# Zsh completion script for codegraph
# Installation:
#   1. Ensure compinit is loaded (add to ~/.zshrc if not present):
#      autoload -U compinit; compinit
#   2. Save this script to a directory in your fpath:
#      codegraph completion zsh > "${fpath[1]}/_codegraph"
#   3. Reload completions:
#      rm -f ~/.zcompdump; compinit

_codegraph() {
    local -a commands
    commands=(
        'init:Create .codegraph/project.yaml configuration'
        'index:Atomize the current repository'
        'status:Show project status'
        'query:Execute CozoScript query'
        'view:Assemble a virtual view'
        'reset:Reset local project data'
        'install-hook:Install git post-commit hook'
        'completion:Generate shell completion script'
    )

    _arguments -C \
        '(- *)--version[Show version and exit]' \
        '--config[Path to .codegraph/project.yaml]:config file:_files -g "*.yaml"' \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                index)
                    _arguments \
                        '--full[Delete existing data and reindex from scratch]' \
                        '--parse-workers[Number of parse workers]:workers:' \
                        '--debug[Enable debug logging]' \
                        '--metrics-addr[Prometheus metrics address]:address:'
                    ;;
                status)
                    _arguments \
                        '--json[Output as JSON]'
                    ;;
                query)
                    _arguments \
                        '--json[Output as JSON]' \
                        '1:cozoscript query:'
                    ;;
                view)
                    _arguments \
                        '--depth[Maximum expansion depth]:depth:' \
                        '--max-atoms[Cap on total atoms]:atoms:' \
                        '--max-tokens[Cap on summed token estimates]:tokens:' \
                        '--follow[Edge types to follow]:types:' \
                        '--always-include-types[Keep following TypeRef edges]' \
                        '--signatures-only[Render ghost atoms as signatures]' \
                        '--hint[Source-path hint]:path:_files' \
                        '--json[Output as JSON]' \
                        '1:symbol or atom id:'
                    ;;
                reset)
                    _arguments \
                        '--yes[Skip confirmation prompt]'
                    ;;
                install-hook)
                    _arguments \
                        '--force[Overwrite existing hook]' \
                        '--remove[Remove the hook]'
                    ;;
                completion)
                    _arguments \
                        '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_codegraph
`

// fishCompletionTemplate is the fish completion script for codegraph.
//
// It provides command and flag completion for fish shells using the
// fish completion system.
const fishCompletionTemplate = `# Fish completion script for codegraph
# Installation:
#   1. Load completions for current session:
#      codegraph completion fish | source
#   2. Install permanently:
#      codegraph completion fish > ~/.config/fish/completions/codegraph.fish

# Commands
complete -c codegraph -f -n "__fish_use_subcommand" -a "init" -d "Create .codegraph/project.yaml configuration"
complete -c codegraph -f -n "__fish_use_subcommand" -a "index" -d "Atomize the current repository"
complete -c codegraph -f -n "__fish_use_subcommand" -a "status" -d "Show project status"
complete -c codegraph -f -n "__fish_use_subcommand" -a "query" -d "Execute CozoScript query"
complete -c codegraph -f -n "__fish_use_subcommand" -a "view" -d "Assemble a virtual view"
complete -c codegraph -f -n "__fish_use_subcommand" -a "reset" -d "Reset local project data (destructive!)"
complete -c codegraph -f -n "__fish_use_subcommand" -a "install-hook" -d "Install git post-commit hook"
complete -c codegraph -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"

# Global flags
complete -c codegraph -l version -d "Show version and exit"
complete -c codegraph -l config -d "Path to .codegraph/project.yaml" -r

# index command flags
complete -c codegraph -n "__fish_seen_subcommand_from index" -l full -d "Delete existing data and reindex from scratch"
complete -c codegraph -n "__fish_seen_subcommand_from index" -l parse-workers -d "Number of parse workers" -r
complete -c codegraph -n "__fish_seen_subcommand_from index" -l debug -d "Enable debug logging"
complete -c codegraph -n "__fish_seen_subcommand_from index" -l metrics-addr -d "Prometheus metrics address" -r

# status command flags
complete -c codegraph -n "__fish_seen_subcommand_from status" -l json -d "Output as JSON"

# query command flags
complete -c codegraph -n "__fish_seen_subcommand_from query" -l json -d "Output as JSON"

# view command flags
complete -c codegraph -n "__fish_seen_subcommand_from view" -l depth -d "Maximum expansion depth" -r
complete -c codegraph -n "__fish_seen_subcommand_from view" -l max-atoms -d "Cap on total atoms" -r
complete -c codegraph -n "__fish_seen_subcommand_from view" -l max-tokens -d "Cap on summed token estimates" -r
complete -c codegraph -n "__fish_seen_subcommand_from view" -l follow -d "Edge types to follow" -r
complete -c codegraph -n "__fish_seen_subcommand_from view" -l always-include-types -d "Keep following TypeRef edges"
complete -c codegraph -n "__fish_seen_subcommand_from view" -l signatures-only -d "Render ghost atoms as signatures"
complete -c codegraph -n "__fish_seen_subcommand_from view" -l json -d "Output as JSON"

# reset command flags
complete -c codegraph -n "__fish_seen_subcommand_from reset" -l yes -d "Skip confirmation prompt"

# install-hook command flags
complete -c codegraph -n "__fish_seen_subcommand_from install-hook" -l force -d "Overwrite existing hook"
complete -c codegraph -n "__fish_seen_subcommand_from install-hook" -l remove -d "Remove the hook"

# completion command arguments
complete -c codegraph -n "__fish_seen_subcommand_from completion" -f -a "bash" -d "Generate bash completion script"
complete -c codegraph -n "__fish_seen_subcommand_from completion" -f -a "zsh" -d "Generate zsh completion script"
complete -c codegraph -n "__fish_seen_subcommand_from completion" -f -a "fish" -d "Generate fish completion script"
`

// runCompletion executes the 'completion' CLI command, generating
// shell-specific completion scripts for bash, zsh, or fish shells.
//
// Usage:
//
//	codegraph completion [bash|zsh|fish]
//
// Examples:
//
//	codegraph completion bash                Output bash completion script
//	source <(codegraph completion bash)      Load bash completions in current shell
//	codegraph completion fish | source       Load fish completions in current shell
func runCompletion(args []string, configPath string) {
	fs := flag.NewFlagSet("completion", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codegraph completion <shell>

Description:
  Generate shell completion scripts for bash, zsh, or fish.

  Shell completions allow you to use Tab to autocomplete commands,
  flags, and arguments. This improves discoverability and reduces typing.

Arguments:
  shell    Shell type: bash, zsh, or fish (required)

Examples:
  # Generate bash completion script
  codegraph completion bash

  # Load bash completions in current shell
  source <(codegraph completion bash)

  # Install bash completions permanently (Linux)
  codegraph completion bash > /etc/bash_completion.d/codegraph

  # Install zsh completions (macOS with Homebrew)
  codegraph completion zsh > $(brew --prefix)/share/zsh/site-functions/_codegraph

  # Install fish completions
  codegraph completion fish > ~/.config/fish/completions/codegraph.fish

Notes:
  After installing completions, restart your shell or source your rc file.
  For persistent installation, add the source command to ~/.bashrc or ~/.zshrc.

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	// Validate arguments
	if fs.NArg() != 1 {
		errors.FatalError(errors.NewInputError(
			"Invalid arguments",
			"The completion command requires exactly one argument: the shell name",
			"Run 'codegraph completion bash', 'codegraph completion zsh', or 'codegraph completion fish'",
		), false)
	}

	shell := fs.Arg(0)

	// Generate completion script for the specified shell
	switch shell {
	case "bash":
		fmt.Print(bashCompletionTemplate)
	case "zsh":
		fmt.Print(zshCompletionTemplate)
	case "fish":
		fmt.Print(fishCompletionTemplate)
	default:
		errors.FatalError(errors.NewInputError(
			"Unsupported shell",
			fmt.Sprintf("Shell '%s' is not supported. Valid options: bash, zsh, fish", shell),
			"Run 'codegraph completion bash', 'codegraph completion zsh', or 'codegraph completion fish'",
		), false)
	}
}
