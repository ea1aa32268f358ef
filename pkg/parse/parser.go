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

package parse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kraklabs/codegraph/pkg/atom"
)

// Registry holds one tree-sitter parser per supported language. A
// Registry is not safe for concurrent use by multiple goroutines against
// the same language; callers that parse files in parallel must use a
// Registry per worker or serialize access per language.
type Registry struct {
	parsers map[atom.Language]*sitter.Parser
}

// NewRegistry builds a Registry with one *sitter.Parser bound via
// SetLanguage to its grammar for every language in atom's closed set.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[atom.Language]*sitter.Parser, 5)}
	r.bind(atom.Go, golang.GetLanguage())
	r.bind(atom.TypeScript, typescript.GetLanguage())
	r.bind(atom.JavaScript, javascript.GetLanguage())
	r.bind(atom.Python, python.GetLanguage())
	r.bind(atom.Rust, rust.GetLanguage())
	return r
}

func (r *Registry) bind(lang atom.Language, grammar *sitter.Language) {
	p := sitter.NewParser()
	p.SetLanguage(grammar)
	r.parsers[lang] = p
}

// Parse parses content as lang and returns the resulting tree. The
// caller must Close the tree when done. ctx is threaded through to
// ParseCtx so a cancelled context aborts the parse itself.
func (r *Registry) Parse(ctx context.Context, lang atom.Language, content []byte) (*sitter.Tree, error) {
	p, ok := r.parsers[lang]
	if !ok {
		return nil, fmt.Errorf("parse: unsupported language %q", lang)
	}
	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, &atom.ParseError{
			Language:   lang,
			Diagnostic: err.Error(),
		}
	}
	return tree, nil
}

// Supports reports whether lang has a bound grammar.
func (r *Registry) Supports(lang atom.Language) bool {
	_, ok := r.parsers[lang]
	return ok
}

// CountErrors returns the number of ERROR nodes in the tree, used to
// decide whether a syntax-error warning is worth logging even though
// tree-sitter's error recovery produced a usable tree. The frontend
// only hard-fails when no tree can be built at all.
func CountErrors(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	count := 0
	if n.HasError() {
		if n.IsError() {
			count++
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			count += CountErrors(n.Child(i))
		}
	}
	return count
}
