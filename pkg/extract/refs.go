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
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/codegraph/pkg/atom"
)

// identifierKinds is the set of leaf node types that carry a bare name
// worth considering as a reference, across all four grammars. Field
// access selectors (".Bar" in "foo.Bar") are identifier-kind leaves in
// every grammar here (field_identifier, property_identifier, or plain
// identifier), so a reference set will
// include both the receiver and the selector; that over-approximation
// is acceptable; symbol resolution simply won't find a defining atom
// for names that don't resolve, and leaves no edge.
var identifierKinds = map[string]bool{
	"identifier":                    true,
	"type_identifier":               true,
	"field_identifier":              true,
	"property_identifier":           true,
	"shorthand_property_identifier": true,
}

// bindingField names a field on a node kind whose identifier descendants
// are locally bound within the enclosing atom and must be excluded
// from References: formal parameters, locally introduced bindings,
// loop and catch variables.
type bindingField struct {
	nodeKind string
	field    string
}

// collectReferences walks node's subtree (skipping anything inside
// skipRanges, which belong to already-emitted nested atoms) and returns
// every identifier occurrence that is not a binding occurrence and does
// not name something the atom itself defines, together with the
// strongest syntactic position each name was seen in: a type position
// beats a call position beats a plain mention. The position kind
// decides which edge the resolution pass records for the reference.
func collectReferences(node *sitter.Node, content []byte, lang atom.Language, defines []string, skipRanges [][2]int) ([]string, map[string]atom.EdgeType) {
	excluded := make(map[string]bool, len(defines))
	for _, d := range defines {
		excluded[d] = true
	}

	bound := collectLocalBindings(node, content, bindingFieldsFor(lang))
	for name := range bound {
		excluded[name] = true
	}

	var refs []string
	kinds := make(map[string]atom.EdgeType)
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		for _, r := range skipRanges {
			if int(n.StartByte()) >= r[0] && int(n.EndByte()) <= r[1] {
				return
			}
		}
		if identifierKinds[n.Type()] {
			name := string(content[n.StartByte():n.EndByte()])
			if name != "" && !excluded[name] && !isBindingPosition(n) {
				refs = append(refs, name)
				k := occurrenceKind(n)
				if refRank(k) > refRank(kinds[name]) {
					kinds[name] = k
				}
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return refs, kinds
}

// callNodeKinds are the call-expression node types across the four
// grammars; an identifier inside such a node's "function" field is a
// call-position occurrence.
var callNodeKinds = map[string]bool{
	"call_expression": true, // go, typescript, javascript, rust
	"call":            true, // python
}

// occurrenceKind classifies one identifier occurrence by its syntactic
// position. type_identifier leaves (Go, Rust, TypeScript) and anything
// under a Python "type" annotation node are type positions; an
// identifier reachable from the "function" field of an enclosing call
// node is a call position; everything else is a plain reference.
func occurrenceKind(n *sitter.Node) atom.EdgeType {
	if n.Type() == "type_identifier" {
		return atom.TypeRef
	}
	// Climb a few levels: the occurrence may sit under a selector or
	// attribute wrapper before the call node itself.
	cur := n
	for depth := 0; depth < 3 && cur != nil; depth++ {
		parent := cur.Parent()
		if parent == nil {
			break
		}
		if parent.Type() == "type" {
			return atom.TypeRef
		}
		if callNodeKinds[parent.Type()] && parent.ChildByFieldName("function") == cur {
			return atom.Calls
		}
		cur = parent
	}
	return atom.Imports
}

func refRank(t atom.EdgeType) int {
	switch t {
	case atom.TypeRef:
		return 2
	case atom.Calls:
		return 1
	default:
		return 0
	}
}

// isBindingPosition reports whether n is itself the "name" field of a
// declaration node (the function's own name, a struct's own name, and
// so on), which must never count as a self-reference.
func isBindingPosition(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	return parent.ChildByFieldName("name") == n
}

// collectLocalBindings scans the subtree rooted at node for the binding
// constructs of lang and returns the set of names they introduce.
func collectLocalBindings(node *sitter.Node, content []byte, fields []bindingField) map[string]bool {
	bound := make(map[string]bool)
	if len(fields) == 0 {
		return bound
	}
	byKind := make(map[string][]string, len(fields))
	for _, f := range fields {
		byKind[f.nodeKind] = append(byKind[f.nodeKind], f.field)
	}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if flds, ok := byKind[n.Type()]; ok {
			for _, f := range flds {
				if f == "" {
					collectIdentLeaves(n, content, bound)
					continue
				}
				if target := n.ChildByFieldName(f); target != nil {
					collectIdentLeaves(target, content, bound)
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return bound
}

// collectIdentLeaves adds every identifier-kind leaf under n to out,
// used when a binding field is itself a destructuring pattern rather
// than a bare identifier (e.g. a tuple-pattern let binding).
func collectIdentLeaves(n *sitter.Node, content []byte, out map[string]bool) {
	if n == nil {
		return
	}
	if identifierKinds[n.Type()] {
		out[string(content[n.StartByte():n.EndByte()])] = true
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collectIdentLeaves(n.Child(i), content, out)
	}
}

func bindingFieldsFor(lang atom.Language) []bindingField {
	switch lang {
	case atom.Go:
		return []bindingField{
			{"parameter_declaration", "name"},
			{"variadic_parameter_declaration", "name"},
			{"short_var_declaration", "left"},
			{"range_clause", "left"},
			{"type_parameter_declaration", "name"},
			{"receiver", "name"},
			{"const_spec", "name"},
			{"var_spec", "name"},
		}
	case atom.TypeScript, atom.JavaScript:
		return []bindingField{
			{"required_parameter", "pattern"},
			{"optional_parameter", "pattern"},
			{"variable_declarator", "name"},
			{"catch_clause", "parameter"},
			{"for_in_statement", "left"},
		}
	case atom.Python:
		return []bindingField{
			{"parameters", ""},
			{"lambda_parameters", ""},
			{"for_statement", "left"},
			{"except_clause", ""},
			{"with_item", ""},
		}
	case atom.Rust:
		return []bindingField{
			{"parameter", "pattern"},
			{"let_declaration", "pattern"},
			{"for_expression", "pattern"},
			{"closure_parameters", ""},
		}
	}
	return nil
}

// leadingDoc returns the contiguous documentation-comment block
// immediately preceding node, and the comment's start byte if one was
// found (used by callers that also want to widen the atom's span).
func leadingDoc(node *sitter.Node, content []byte, lang atom.Language) (string, int) {
	commentKinds := commentKindsFor(lang)
	var lines []string
	earliest := -1
	cur := node.PrevSibling()
	for cur != nil && commentKinds[cur.Type()] {
		text := strings.TrimSpace(string(content[cur.StartByte():cur.EndByte()]))
		lines = append([]string{text}, lines...)
		earliest = int(cur.StartByte())
		cur = cur.PrevSibling()
	}
	if len(lines) == 0 {
		return "", int(node.StartByte())
	}
	return strings.Join(lines, "\n"), earliest
}

func commentKindsFor(lang atom.Language) map[string]bool {
	switch lang {
	case atom.Rust:
		return map[string]bool{"line_comment": true, "block_comment": true}
	default:
		return map[string]bool{"comment": true}
	}
}
