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

package view

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kraklabs/codegraph/pkg/atom"
)

// Build is the full view operation: ghost-resolve the seed set under
// pol, then rehydrate everything into one buffer. Ghost atoms are
// rendered as signature projections when pol.SignaturesOnly is set.
func Build(ctx context.Context, g Graph, seeds []string, pol atom.ExpansionPolicy) (*atom.VirtualView, error) {
	expansion, err := NewResolver(g, nil).Expand(ctx, seeds, pol)
	if err != nil {
		return nil, err
	}

	var ghostOnly map[string]bool
	if pol.SignaturesOnly {
		ghostOnly = make(map[string]bool, len(expansion.GhostAtoms))
		for _, id := range expansion.GhostAtoms {
			ghostOnly[id] = true
		}
	}
	return Rehydrate(ctx, g, expansion.Atoms, ghostOnly)
}

// orderedAtom pairs a fetched atom with its rendering mode.
type orderedAtom struct {
	a             *atom.Atom
	signatureOnly bool
}

// Rehydrate materializes a buffer from the given atom ids.
//
// Ordering is a stable partition by kind priority (constants and type
// aliases, then types, then functions and methods, then modules), then
// by (source_path, byte_start) within a partition, with ties broken by
// atom id. Ids not present in the store render as a placeholder comment
// after all found atoms, ordered by id, and are listed in Missing.
//
// Each atom's content is inserted verbatim behind a one-line separator
// comment naming it; signatureOnly atoms render a body-elided
// projection instead of full content. SymbolLocations maps every
// defined name to the 1-based line where its atom's content begins.
func Rehydrate(ctx context.Context, g Graph, ids []string, signatureOnly map[string]bool) (*atom.VirtualView, error) {
	var found []orderedAtom
	var missing []string

	for _, id := range ids {
		a, err := g.GetAtom(ctx, id)
		if err != nil {
			var nf *atom.NotFoundError
			if errors.As(err, &nf) {
				missing = append(missing, id)
				continue
			}
			return nil, err
		}
		found = append(found, orderedAtom{a: a, signatureOnly: signatureOnly[id]})
	}
	sort.Strings(missing)

	sort.SliceStable(found, func(i, j int) bool {
		ai, aj := found[i].a, found[j].a
		if pi, pj := ai.Kind.Priority(), aj.Kind.Priority(); pi != pj {
			return pi < pj
		}
		if ai.SourcePath != aj.SourcePath {
			return ai.SourcePath < aj.SourcePath
		}
		if ai.ByteRange.Start != aj.ByteRange.Start {
			return ai.ByteRange.Start < aj.ByteRange.Start
		}
		return ai.ID < aj.ID
	})

	v := &atom.VirtualView{
		SymbolLocations: make(map[string]int),
		Language:        dominantLanguage(found),
	}

	var buf strings.Builder
	line := 1
	for _, oa := range found {
		if err := ctx.Err(); err != nil {
			v.Cancelled = true
			break
		}
		a := oa.a
		v.Atoms = append(v.Atoms, a.ID)

		label := a.Name
		if label == "" {
			label = a.ID
		}
		sep := fmt.Sprintf("%s ----- %s -----\n", commentPrefix(a.Language), label)
		buf.WriteString(sep)
		line++

		content := a.Content
		if oa.signatureOnly {
			content = []byte(SignatureProjection(a))
		}
		for _, name := range a.Defines {
			if _, taken := v.SymbolLocations[name]; !taken {
				v.SymbolLocations[name] = line
			}
		}
		buf.Write(content)
		line += bytes.Count(content, []byte("\n"))
		if len(content) == 0 || content[len(content)-1] != '\n' {
			buf.WriteString("\n")
			line++
		}
		buf.WriteString("\n")
		line++
	}

	if !v.Cancelled {
		for _, id := range missing {
			fmt.Fprintf(&buf, "%s missing: %s\n\n", commentPrefix(v.Language), id)
			line += 2
			v.Atoms = append(v.Atoms, id)
		}
	}

	v.Source = buf.String()
	v.Missing = missing
	v.TokenEstimate = atom.EstimateTokens(len(v.Source))
	return v, nil
}

// dominantLanguage picks the language appearing on the most atoms; on a
// tie, the language that reached the top count first wins.
func dominantLanguage(atoms []orderedAtom) atom.Language {
	if len(atoms) == 0 {
		return ""
	}
	counts := make(map[atom.Language]int)
	best := atoms[0].a.Language
	for _, oa := range atoms {
		lang := oa.a.Language
		counts[lang]++
		if counts[lang] > counts[best] {
			best = lang
		}
	}
	return best
}

// commentPrefix returns the line-comment marker for lang. The empty
// language (a view of zero atoms) falls back to the C-family marker.
func commentPrefix(lang atom.Language) string {
	if lang == atom.Python {
		return "#"
	}
	return "//"
}

// SignatureProjection renders an atom as its declared interface with
// the body elided, computed deterministically from the stored content.
// Brace languages cut at the first opening brace; Python cuts at the
// end of the def/class header line.
func SignatureProjection(a *atom.Atom) string {
	content := string(a.Content)

	if a.Language == atom.Python {
		if idx := strings.Index(content, ":\n"); idx >= 0 {
			return content[:idx+1] + "\n    ..."
		}
		return content
	}

	idx := strings.IndexByte(content, '{')
	if idx < 0 {
		return content
	}
	header := strings.TrimRight(content[:idx], " \t\n")
	return header + " { /* elided */ }"
}
