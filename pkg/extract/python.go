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

// walkPython extracts atoms for function_definition (top-level, in a
// class body, or nested in another function), class_definition, and
// module-level assignments
// to all-uppercase names. decorated_definition wrappers are
// unwrapped so the emitted atom's span includes its decorators.
func walkPython(root *sitter.Node, content []byte) []candidate {
	var cands []candidate

	var walk func(n *sitter.Node, containerIdx int, inClass bool)
	walk = func(n *sitter.Node, containerIdx int, inClass bool) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "decorated_definition":
			inner := n.ChildByFieldName("definition")
			if inner == nil {
				break
			}
			walkPythonDefinition(&cands, n, inner, content, containerIdx, inClass)
			return

		case "function_definition", "class_definition":
			walkPythonDefinition(&cands, n, n, content, containerIdx, inClass)
			return

		case "expression_statement":
			if n.Parent() != nil && n.Parent().Type() == "module" {
				if c, ok := pythonModuleConstant(n, content); ok {
					cands = append(cands, c)
					return
				}
			}
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), containerIdx, inClass)
		}
	}
	walk(root, -1, false)
	return cands
}

// walkPythonDefinition handles a function_definition or class_definition
// node (spanNode may be its decorated_definition wrapper) and recurses
// into its body with updated container context.
func walkPythonDefinition(cands *[]candidate, spanNode, defNode *sitter.Node, content []byte, containerIdx int, inClass bool) {
	name := fieldText(defNode, "name", content)
	if name == "" {
		return
	}
	_, start := leadingDoc(spanNode, content, atom.Python)
	if int(spanNode.StartByte()) < start {
		start = int(spanNode.StartByte())
	}

	var kind atom.Kind
	switch defNode.Type() {
	case "class_definition":
		kind = atom.KindClass
	case "function_definition":
		switch {
		case inClass:
			kind = atom.KindMethod
		case isPythonAsync(defNode):
			kind = atom.KindAsyncFunction
		default:
			kind = atom.KindFunction
		}
	default:
		return
	}

	idx := len(*cands)
	*cands = append(*cands, candidate{
		node: defNode, kind: kind, name: name,
		defines:   []string{name},
		spanStart: start, spanEnd: int(spanNode.EndByte()),
		parentIdx: containerIdx,
	})

	body := defNode.ChildByFieldName("body")
	if body == nil {
		return
	}
	nextInClass := defNode.Type() == "class_definition"
	for i := 0; i < int(body.ChildCount()); i++ {
		walkPythonBody(cands, body.Child(i), content, idx, nextInClass)
	}
}

func walkPythonBody(cands *[]candidate, n *sitter.Node, content []byte, containerIdx int, inClass bool) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "decorated_definition":
		inner := n.ChildByFieldName("definition")
		if inner != nil {
			walkPythonDefinition(cands, n, inner, content, containerIdx, inClass)
		}
		return
	case "function_definition", "class_definition":
		walkPythonDefinition(cands, n, n, content, containerIdx, inClass)
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walkPythonBody(cands, n.Child(i), content, containerIdx, inClass)
	}
}

func isPythonAsync(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "async" {
			return true
		}
	}
	return false
}

// pythonModuleConstant recognizes "NAME = expr" module-level statements
// where NAME is entirely uppercase.
func pythonModuleConstant(stmt *sitter.Node, content []byte) (candidate, bool) {
	if stmt.NamedChildCount() == 0 {
		return candidate{}, false
	}
	assign := stmt.NamedChild(0)
	if assign.Type() != "assignment" {
		return candidate{}, false
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return candidate{}, false
	}
	name := string(content[left.StartByte():left.EndByte()])
	if name == "" || !isUpperSnake(name) {
		return candidate{}, false
	}
	_, start := leadingDoc(stmt, content, atom.Python)
	return candidate{
		node: stmt, kind: atom.KindConstant, name: name,
		defines:   []string{name},
		spanStart: start, spanEnd: int(stmt.EndByte()),
		parentIdx: -1,
	}, true
}

func isUpperSnake(name string) bool {
	hasLetter := false
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return hasLetter
}
