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
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/codegraph/pkg/atom"
)

// Result is everything the extractor produced for one source file.
type Result struct {
	Atoms    []atom.Atom
	Edges    []atom.Edge // ComposedOf only; reference edges come from the resolution pass
	Warnings []atom.Warning

	// RefKinds is parallel to Atoms: for each atom, the syntactic
	// position its references were seen in (type, call, or plain).
	// The resolution pass turns these into TypeRef/Calls/Imports
	// edges once the batch's symbols are indexed.
	RefKinds []map[string]atom.EdgeType
}

// candidate is a recognized atom before ids are assigned: the node it
// came from plus everything computed from it.
type candidate struct {
	node      *sitter.Node
	kind      atom.Kind
	name      string
	defines   []string
	spanStart int
	spanEnd   int
	parentIdx int // index into the candidates slice of the enclosing container, or -1
}

// File extracts atoms from a single parsed source file. rootNode must
// come from parsing content with lang's grammar (pkg/parse).
func File(lang atom.Language, sourcePath string, content []byte, rootNode *sitter.Node) (*Result, error) {
	var cands []candidate
	var warnings []atom.Warning

	switch lang {
	case atom.Go:
		cands = walkGo(rootNode, content)
	case atom.TypeScript, atom.JavaScript:
		cands = walkTSJS(rootNode, content)
	case atom.Python:
		cands = walkPython(rootNode, content)
	case atom.Rust:
		cands = walkRust(rootNode, content)
	default:
		return nil, fmt.Errorf("extract: unsupported language %q", lang)
	}

	result := &Result{}
	ids := make([]string, len(cands))
	for i, c := range cands {
		if c.spanEnd <= c.spanStart || c.spanEnd > len(content) || c.spanStart < 0 {
			warnings = append(warnings, atom.Warning{
				Kind:       atom.WarnExtractor,
				SourcePath: sourcePath,
				Detail:     fmt.Sprintf("malformed byte range for %s atom %q", c.kind, c.name),
			})
			ids[i] = ""
			continue
		}
		rawContent := content[c.spanStart:c.spanEnd]
		id := atom.GenerateID(rawContent)
		ids[i] = id

		doc, _ := leadingDoc(c.node, content, lang)

		refs, refKinds := collectReferences(c.node, content, lang, c.defines, skipRangesOf(cands, i))

		a := atom.Atom{
			ID:         id,
			Language:   lang,
			Kind:       c.kind,
			Name:       c.name,
			SourcePath: sourcePath,
			ByteRange:  atom.ByteRange{Start: c.spanStart, End: c.spanEnd},
			LineRange: atom.LineRange{
				Start: int(c.node.StartPoint().Row) + 1,
				End:   int(c.node.EndPoint().Row) + 1,
			},
			Defines:    dedupeSorted(c.defines),
			References: dedupeSorted(refs),
			Doc:        doc,
			Content:    append([]byte(nil), rawContent...),
		}
		result.Atoms = append(result.Atoms, a)
		result.RefKinds = append(result.RefKinds, refKinds)
	}

	for i, c := range cands {
		if ids[i] == "" || c.parentIdx < 0 || ids[c.parentIdx] == "" {
			continue
		}
		result.Edges = append(result.Edges, atom.Edge{
			Src:  ids[c.parentIdx],
			Type: atom.ComposedOf,
			Dst:  ids[i],
		})
	}

	// tree-sitter recovers around malformed regions, so the file still
	// yields atoms for its well-formed constructs; the skipped regions
	// are reported, not fatal.
	if rootNode.HasError() {
		warnings = append(warnings, atom.Warning{
			Kind:       atom.WarnExtractor,
			SourcePath: sourcePath,
			Detail:     "malformed subtree skipped",
		})
	}
	result.Warnings = warnings
	return result, nil
}

// skipRangesOf returns the byte ranges of every candidate other than i
// whose node falls within candidate i's subtree at the top level (direct
// or transitive children already emitted as their own atoms). Reference
// collection treats these as opaque so a container's reference set
// doesn't balloon with everything its nested atoms already account for.
func skipRangesOf(cands []candidate, i int) [][2]int {
	var out [][2]int
	for j, c := range cands {
		if j == i {
			continue
		}
		if c.spanStart >= cands[i].spanStart && c.spanEnd <= cands[i].spanEnd && c.spanStart > cands[i].spanStart {
			out = append(out, [2]int{int(c.node.StartByte()), int(c.node.EndByte())})
		}
	}
	return out
}

func dedupeSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
