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

package testing

import (
	"context"
	"strings"
	"testing"

	"github.com/kraklabs/codegraph/pkg/atom"
	"github.com/kraklabs/codegraph/pkg/storage"
)

// SetupTestStore creates an in-memory graph store for testing.
// The store is automatically cleaned up when the test finishes.
//
// This helper:
//   - Creates a temporary directory
//   - Opens an in-memory CozoDB-backed store with the schema created
//   - Registers cleanup to close the store
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    store := testing.SetupTestStore(t)
//
//	    // Store is ready with the graph schema initialized
//	    id := testing.PutTestAtom(t, store, "pkg/auth.go", "HandleAuth", "func HandleAuth() {}")
//
//	    // Run your tests...
//	}
func SetupTestStore(t *testing.T) *storage.Store {
	t.Helper()

	// Use in-memory engine for fast tests
	store, err := storage.Open(storage.StoreConfig{
		Engine:  "mem",
		DataDir: t.TempDir(),
	}, nil)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	// Register cleanup
	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// PutTestAtom stores a function atom built from the given content and
// returns its content-address. This is a convenience helper for seeding
// test data.
//
// Example:
//
//	store := testing.SetupTestStore(t)
//	id := testing.PutTestAtom(t, store, "auth.go", "HandleAuth", "func HandleAuth() {}")
func PutTestAtom(t *testing.T, store *storage.Store, sourcePath, name, content string) string {
	t.Helper()

	a := atom.Atom{
		ID:         atom.GenerateID([]byte(content)),
		Language:   atom.Go,
		Kind:       atom.KindFunction,
		Name:       name,
		SourcePath: sourcePath,
		ByteRange:  atom.ByteRange{Start: 0, End: len(content)},
		LineRange:  atom.LineRange{Start: 1, End: 1 + strings.Count(content, "\n")},
		Defines:    []string{name},
		Content:    []byte(content),
	}

	if err := store.PutAtom(context.Background(), a); err != nil {
		t.Fatalf("failed to put test atom: %v", err)
	}
	return a.ID
}

// LinkTestAtoms records an edge between two stored atoms.
//
// Example:
//
//	testing.LinkTestAtoms(t, store, callerID, atom.Calls, calleeID)
func LinkTestAtoms(t *testing.T, store *storage.Store, src string, typ atom.EdgeType, dst string) {
	t.Helper()

	if err := store.AddEdge(context.Background(), src, typ, dst); err != nil {
		t.Fatalf("failed to add test edge: %v", err)
	}
}

// CountAtoms returns the number of atoms in the store.
func CountAtoms(t *testing.T, store *storage.Store) int {
	t.Helper()

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("failed to read stats: %v", err)
	}
	return stats.Atoms
}
