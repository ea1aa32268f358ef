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

package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/codegraph/pkg/atom"
)

// walkTSJS extracts atoms for both the TypeScript and JavaScript
// grammars, which share node-kind names closely enough to drive off a
// single visitor body. class_declaration bodies nest their
// method_definition children directly in the AST, so containment here
// is structural rather than the nominal matching Go and Rust need.
func walkTSJS(root *sitter.Node, content []byte) []candidate {
	var cands []candidate

	var walk func(n *sitter.Node, containerIdx int)
	walk = func(n *sitter.Node, containerIdx int) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "function_declaration":
			if name := fieldText(n, "name", content); name != "" {
				_, start := leadingDoc(n, content, atom.TypeScript)
				cands = append(cands, candidate{
					node: n, kind: atom.KindFunction, name: name,
					defines:   []string{name},
					spanStart: start, spanEnd: int(n.EndByte()),
					parentIdx: containerIdx,
				})
			}
			return

		case "variable_declarator":
			value := n.ChildByFieldName("value")
			name := fieldText(n, "name", content)
			if value != nil && name != "" && (value.Type() == "arrow_function" || value.Type() == "function_expression" || value.Type() == "function") {
				_, start := leadingDoc(declaratorStatement(n), content, atom.TypeScript)
				stmt := declaratorStatement(n)
				cands = append(cands, candidate{
					node: stmt, kind: atom.KindFunction, name: name,
					defines:   []string{name},
					spanStart: start, spanEnd: int(stmt.EndByte()),
					parentIdx: containerIdx,
				})
				return
			}

		case "method_definition", "method_signature", "function_signature":
			name := fieldText(n, "name", content)
			if name == "" {
				break
			}
			_, start := leadingDoc(n, content, atom.TypeScript)
			idx := len(cands)
			cands = append(cands, candidate{
				node: n, kind: atom.KindMethod, name: name,
				defines:   []string{name},
				spanStart: start, spanEnd: int(n.EndByte()),
				parentIdx: containerIdx,
			})
			for i := 0; i < int(n.ChildCount()); i++ {
				walk(n.Child(i), idx)
			}
			return

		case "interface_declaration":
			name := fieldText(n, "name", content)
			if name == "" {
				break
			}
			_, start := leadingDoc(n, content, atom.TypeScript)
			cands = append(cands, candidate{
				node: n, kind: atom.KindInterface, name: name,
				defines:   []string{name},
				spanStart: start, spanEnd: int(n.EndByte()),
				parentIdx: containerIdx,
			})
			return

		case "class_declaration":
			name := fieldText(n, "name", content)
			if name == "" {
				break
			}
			_, start := leadingDoc(n, content, atom.TypeScript)
			idx := len(cands)
			cands = append(cands, candidate{
				node: n, kind: atom.KindClass, name: name,
				defines:   []string{name},
				spanStart: start, spanEnd: int(n.EndByte()),
				parentIdx: containerIdx,
			})
			for i := 0; i < int(n.ChildCount()); i++ {
				walk(n.Child(i), idx)
			}
			return

		case "type_alias_declaration":
			name := fieldText(n, "name", content)
			if name == "" {
				break
			}
			_, start := leadingDoc(n, content, atom.TypeScript)
			cands = append(cands, candidate{
				node: n, kind: atom.KindTypeAlias, name: name,
				defines:   []string{name},
				spanStart: start, spanEnd: int(n.EndByte()),
				parentIdx: containerIdx,
			})
			return
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), containerIdx)
		}
	}
	walk(root, -1)
	return cands
}

// declaratorStatement widens a variable_declarator up to its enclosing
// lexical_declaration/variable_declaration so the emitted atom's span
// includes the "const"/"let" keyword rather than starting mid-statement.
func declaratorStatement(declarator *sitter.Node) *sitter.Node {
	n := declarator.Parent()
	for n != nil {
		switch n.Type() {
		case "lexical_declaration", "variable_declaration":
			return n
		}
		n = n.Parent()
	}
	return declarator
}
