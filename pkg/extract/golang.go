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

// walkGo extracts atoms for function_declaration, method_declaration,
// func_literal, type_declaration, and top-level const/var
// declarations. Methods are matched to their receiver
// type's atom by name, since Go impl-style containment is nominal, not
// structural: the method_declaration never appears inside the
// struct/interface's type_declaration node.
func walkGo(root *sitter.Node, content []byte) []candidate {
	var cands []candidate
	typeNameToIdx := make(map[string]int)
	type pendingMethod struct {
		idx          int
		receiverType string
	}
	var pending []pendingMethod

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "function_declaration":
			if name := fieldText(n, "name", content); name != "" {
				_, start := leadingDoc(n, content, atom.Go)
				cands = append(cands, candidate{
					node: n, kind: atom.KindFunction, name: name,
					defines:   []string{name},
					spanStart: start, spanEnd: int(n.EndByte()),
					parentIdx: -1,
				})
			}

		case "method_declaration":
			name := fieldText(n, "name", content)
			if name == "" {
				return
			}
			receiverType := goReceiverType(n, content)
			fullName := name
			// Indexed under both the qualified and the bare name: call
			// sites ("s.Run()") reference the bare identifier, so a
			// Run-only symbol row is what resolution actually hits; the
			// source-path hint disambiguates same-named methods on
			// different types.
			defines := []string{name}
			if receiverType != "" {
				fullName = receiverType + "." + name
				defines = []string{fullName, name}
			}
			_, start := leadingDoc(n, content, atom.Go)
			idx := len(cands)
			cands = append(cands, candidate{
				node: n, kind: atom.KindMethod, name: fullName,
				defines:   defines,
				spanStart: start, spanEnd: int(n.EndByte()),
				parentIdx: -1,
			})
			if receiverType != "" {
				pending = append(pending, pendingMethod{idx: idx, receiverType: receiverType})
			}

		case "func_literal":
			_, start := leadingDoc(n, content, atom.Go)
			cands = append(cands, candidate{
				node: n, kind: atom.KindFunction, name: "",
				spanStart: start, spanEnd: int(n.EndByte()),
				parentIdx: -1,
			})

		case "type_declaration":
			if n.Parent() != nil && n.Parent().Type() == "source_file" {
				for i := 0; i < int(n.NamedChildCount()); i++ {
					spec := n.NamedChild(i)
					if spec.Type() != "type_spec" {
						continue
					}
					name := fieldText(spec, "name", content)
					if name == "" {
						continue
					}
					kind := goTypeKind(spec)
					_, start := leadingDoc(n, content, atom.Go)
					idx := len(cands)
					cands = append(cands, candidate{
						node: n, kind: kind, name: name,
						defines:   []string{name},
						spanStart: start, spanEnd: int(n.EndByte()),
						parentIdx: -1,
					})
					typeNameToIdx[name] = idx
				}
			}
			return // don't recurse into type bodies looking for unrelated constructs

		case "const_declaration", "var_declaration":
			if n.Parent() != nil && n.Parent().Type() == "source_file" {
				names := goSpecNames(n, content)
				if len(names) > 0 {
					_, start := leadingDoc(n, content, atom.Go)
					cands = append(cands, candidate{
						node: n, kind: atom.KindConstant, name: names[0],
						defines:   names,
						spanStart: start, spanEnd: int(n.EndByte()),
						parentIdx: -1,
					})
				}
			}
			return
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	for _, pm := range pending {
		if typeIdx, ok := typeNameToIdx[pm.receiverType]; ok {
			cands[pm.idx].parentIdx = typeIdx
		}
	}
	return cands
}

func fieldText(n *sitter.Node, field string, content []byte) string {
	target := n.ChildByFieldName(field)
	if target == nil {
		return ""
	}
	return string(content[target.StartByte():target.EndByte()])
}

// goReceiverType extracts the base type name from a method's receiver,
// e.g. "(s *Server)" -> "Server", "(s Server[T])" -> "Server".
func goReceiverType(methodDecl *sitter.Node, content []byte) string {
	receiver := methodDecl.ChildByFieldName("receiver")
	if receiver == nil {
		return ""
	}
	for i := 0; i < int(receiver.NamedChildCount()); i++ {
		param := receiver.NamedChild(i)
		if param.Type() != "parameter_declaration" {
			continue
		}
		typeNode := param.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		return goBaseTypeName(typeNode, content)
	}
	return ""
}

func goBaseTypeName(n *sitter.Node, content []byte) string {
	switch n.Type() {
	case "pointer_type":
		for i := 0; i < int(n.ChildCount()); i++ {
			if n.Child(i).Type() != "*" {
				return goBaseTypeName(n.Child(i), content)
			}
		}
	case "generic_type":
		if t := n.ChildByFieldName("type"); t != nil {
			return string(content[t.StartByte():t.EndByte()])
		}
	case "type_identifier":
		return string(content[n.StartByte():n.EndByte()])
	}
	return string(content[n.StartByte():n.EndByte()])
}

func goTypeKind(typeSpec *sitter.Node) atom.Kind {
	t := typeSpec.ChildByFieldName("type")
	if t == nil {
		return atom.KindTypeAlias
	}
	switch t.Type() {
	case "struct_type":
		return atom.KindStruct
	case "interface_type":
		return atom.KindInterface
	default:
		return atom.KindTypeAlias
	}
}

func goSpecNames(declNode *sitter.Node, content []byte) []string {
	var names []string
	for i := 0; i < int(declNode.NamedChildCount()); i++ {
		spec := declNode.NamedChild(i)
		if spec.Type() != "const_spec" && spec.Type() != "var_spec" {
			continue
		}
		// name is a field that may repeat for "a, b = 1, 2" style specs.
		for j := 0; j < int(spec.ChildCount()); j++ {
			child := spec.Child(j)
			if child.Type() == "identifier" {
				names = append(names, string(content[child.StartByte():child.EndByte()]))
			}
		}
	}
	return names
}
