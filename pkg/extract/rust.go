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

// walkRust extracts atoms for function_item, struct_item, enum_item,
// trait_item, impl_item (as a container matched by name to its target
// type, mirroring Go's nominal receiver matching since impl blocks are
// siblings of the type they extend, not nested inside it), mod_item,
// const_item/static_item, type_item, and macro_definition.
func walkRust(root *sitter.Node, content []byte) []candidate {
	var cands []candidate
	typeNameToIdx := make(map[string]int)

	var walk func(n *sitter.Node, containerIdx int)
	walk = func(n *sitter.Node, containerIdx int) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "function_item":
			name := fieldText(n, "name", content)
			if name == "" {
				return
			}
			_, start := leadingDoc(n, content, atom.Rust)
			kind := atom.KindFunction
			if isRustAsync(n) {
				kind = atom.KindAsyncFunction
			}
			cands = append(cands, candidate{
				node: n, kind: kind, name: name,
				defines:   []string{name},
				spanStart: start, spanEnd: int(n.EndByte()),
				parentIdx: containerIdx,
			})
			return

		case "struct_item", "enum_item", "trait_item":
			name := fieldText(n, "name", content)
			if name == "" {
				break
			}
			_, start := leadingDoc(n, content, atom.Rust)
			idx := len(cands)
			var kind atom.Kind
			switch n.Type() {
			case "struct_item":
				kind = atom.KindStruct
			case "enum_item":
				kind = atom.KindEnum
			case "trait_item":
				kind = atom.KindTrait
			}
			cands = append(cands, candidate{
				node: n, kind: kind, name: name,
				defines:   []string{name},
				spanStart: start, spanEnd: int(n.EndByte()),
				parentIdx: containerIdx,
			})
			typeNameToIdx[name] = idx
			return

		case "impl_item":
			// The impl block itself is a structural container, not a
			// named atom readers would ghost-import: its function_item
			// children are emitted as methods attached directly to the
			// target type's atom, matched by name like Go's receivers.
			targetType := rustImplTarget(n, content)
			methodContainer := -1
			if targetType != "" {
				if typeIdx, ok := typeNameToIdx[targetType]; ok {
					methodContainer = typeIdx
				}
			}
			body := n.ChildByFieldName("body")
			if body != nil {
				for i := 0; i < int(body.ChildCount()); i++ {
					walkRustImplMember(&cands, body.Child(i), content, methodContainer)
				}
			}
			return

		case "mod_item":
			name := fieldText(n, "name", content)
			if name == "" {
				break
			}
			_, start := leadingDoc(n, content, atom.Rust)
			idx := len(cands)
			cands = append(cands, candidate{
				node: n, kind: atom.KindModule, name: name,
				defines:   []string{name},
				spanStart: start, spanEnd: int(n.EndByte()),
				parentIdx: containerIdx,
			})
			body := n.ChildByFieldName("body")
			if body != nil {
				for i := 0; i < int(body.ChildCount()); i++ {
					walk(body.Child(i), idx)
				}
			}
			return

		case "const_item", "static_item":
			name := fieldText(n, "name", content)
			if name == "" {
				break
			}
			_, start := leadingDoc(n, content, atom.Rust)
			cands = append(cands, candidate{
				node: n, kind: atom.KindConstant, name: name,
				defines:   []string{name},
				spanStart: start, spanEnd: int(n.EndByte()),
				parentIdx: containerIdx,
			})
			return

		case "type_item":
			name := fieldText(n, "name", content)
			if name == "" {
				break
			}
			_, start := leadingDoc(n, content, atom.Rust)
			cands = append(cands, candidate{
				node: n, kind: atom.KindTypeAlias, name: name,
				defines:   []string{name},
				spanStart: start, spanEnd: int(n.EndByte()),
				parentIdx: containerIdx,
			})
			return

		case "macro_definition":
			name := fieldText(n, "name", content)
			if name == "" {
				break
			}
			_, start := leadingDoc(n, content, atom.Rust)
			cands = append(cands, candidate{
				node: n, kind: atom.KindMacro, name: name,
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

// walkRustImplMember emits function_item children of an impl block's
// body as methods attached to containerIdx (the impl's target type
// atom, or -1 if the target type atom wasn't found in this file).
func walkRustImplMember(cands *[]candidate, n *sitter.Node, content []byte, containerIdx int) {
	if n == nil || n.Type() != "function_item" {
		return
	}
	name := fieldText(n, "name", content)
	if name == "" {
		return
	}
	_, start := leadingDoc(n, content, atom.Rust)
	*cands = append(*cands, candidate{
		node: n, kind: atom.KindMethod, name: name,
		defines:   []string{name},
		spanStart: start, spanEnd: int(n.EndByte()),
		parentIdx: containerIdx,
	})
}

func isRustAsync(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "async" {
			return true
		}
	}
	return false
}

// rustImplTarget returns the base type name an impl_item extends, e.g.
// "impl Foo" and "impl Trait for Foo" both yield "Foo".
func rustImplTarget(n *sitter.Node, content []byte) string {
	t := n.ChildByFieldName("type")
	if t == nil {
		return ""
	}
	return goBaseTypeName(t, content)
}
