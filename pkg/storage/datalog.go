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

package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kraklabs/codegraph/pkg/atom"
)

// DatalogBuilder generates CozoScript mutation statements for atoms and
// edges. Every statement is a self-contained brace-wrapped :put (or
// :rm) mini-query, the form CozoDB requires when several statements
// share one script; the ingestion batcher regroups them freely, and
// each executed script commits as a single transaction. Values are
// serialized through JSON so arbitrary source text survives quoting.
type DatalogBuilder struct{}

// NewDatalogBuilder creates a new builder.
func NewDatalogBuilder() *DatalogBuilder {
	return &DatalogBuilder{}
}

// lit serializes v as a CozoScript literal. JSON string/number/array
// syntax is valid CozoScript expression syntax, which is what makes
// this safe for atom content containing quotes and backslashes.
func lit(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Only unmarshalable types reach here, and the builder is
		// called exclusively with strings, ints and string slices.
		return `""`
	}
	return string(b)
}

// BuildAtomPut returns the statements storing one atom: metadata row,
// content row, and one symbol-index row per defined name. seqBase is
// the first insertion sequence number to assign to the symbol rows.
func (b *DatalogBuilder) BuildAtomPut(a atom.Atom, seqBase int64) string {
	var out strings.Builder

	fmt.Fprintf(&out,
		"{ ?[id, language, kind, name, source_path, byte_start, byte_end, line_start, line_end, doc, defines, references, token_estimate] <- [[%s, %s, %s, %s, %s, %d, %d, %d, %d, %s, %s, %s, %d]] :put cg_atom {id => language, kind, name, source_path, byte_start, byte_end, line_start, line_end, doc, defines, references, token_estimate} }\n",
		lit(a.ID), lit(string(a.Language)), lit(string(a.Kind)), lit(a.Name), lit(a.SourcePath),
		a.ByteRange.Start, a.ByteRange.End, a.LineRange.Start, a.LineRange.End,
		lit(a.Doc), lit(stringsOrEmpty(a.Defines)), lit(stringsOrEmpty(a.References)),
		atom.EstimateTokens(len(a.Content)))

	fmt.Fprintf(&out,
		"{ ?[id, text] <- [[%s, %s]] :put cg_content {id => text} }\n",
		lit(a.ID), lit(string(a.Content)))

	for i, name := range a.Defines {
		fmt.Fprintf(&out,
			"{ ?[name, atom_id, seq] <- [[%s, %s, %d]] :put cg_symbol {name, atom_id => seq} }\n",
			lit(name), lit(a.ID), seqBase+int64(i))
	}

	return out.String()
}

// BuildEdgePut returns the statements recording one edge in both the
// forward and reverse indices. Callers must run both inside a single
// script so the two relations never diverge.
func (b *DatalogBuilder) BuildEdgePut(e atom.Edge) string {
	var out strings.Builder
	fmt.Fprintf(&out,
		"{ ?[src, type, dst] <- [[%s, %s, %s]] :put cg_edge_out {src, type, dst} }\n",
		lit(e.Src), lit(string(e.Type)), lit(e.Dst))
	fmt.Fprintf(&out,
		"{ ?[dst, type, src] <- [[%s, %s, %s]] :put cg_edge_in {dst, type, src} }\n",
		lit(e.Dst), lit(string(e.Type)), lit(e.Src))
	return out.String()
}

// DeletionSet names everything to remove when a batch is rolled back or
// a re-ingested file's stale atoms are evicted.
type DeletionSet struct {
	AtomIDs []string
	Edges   []atom.Edge
}

// BuildDeletions returns :rm statements for the set. Atom removal
// covers the metadata row, the content row, and the symbol-index rows
// of every name the atom defines.
func (b *DatalogBuilder) BuildDeletions(del DeletionSet, defines map[string][]string) string {
	var out strings.Builder

	for _, id := range del.AtomIDs {
		fmt.Fprintf(&out, "{ ?[id] <- [[%s]] :rm cg_atom {id} }\n", lit(id))
		fmt.Fprintf(&out, "{ ?[id] <- [[%s]] :rm cg_content {id} }\n", lit(id))
		for _, name := range defines[id] {
			fmt.Fprintf(&out, "{ ?[name, atom_id] <- [[%s, %s]] :rm cg_symbol {name, atom_id} }\n", lit(name), lit(id))
		}
	}
	for _, e := range del.Edges {
		fmt.Fprintf(&out, "{ ?[src, type, dst] <- [[%s, %s, %s]] :rm cg_edge_out {src, type, dst} }\n",
			lit(e.Src), lit(string(e.Type)), lit(e.Dst))
		fmt.Fprintf(&out, "{ ?[dst, type, src] <- [[%s, %s, %s]] :rm cg_edge_in {dst, type, src} }\n",
			lit(e.Dst), lit(string(e.Type)), lit(e.Src))
	}

	return out.String()
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
