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

//go:build cgo

package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/atom"
)

// TestSetupTestStore verifies the test store is created correctly.
func TestSetupTestStore(t *testing.T) {
	store := SetupTestStore(t)

	// Store should not be nil
	require.NotNil(t, store)

	// Schema should exist and start empty
	assert.Equal(t, 0, CountAtoms(t, store), "Should start with no atoms")
}

// TestPutTestAtom verifies atom seeding.
func TestPutTestAtom(t *testing.T) {
	store := SetupTestStore(t)

	id := PutTestAtom(t, store, "auth.go", "HandleAuth", "func HandleAuth() {}")
	require.NotEmpty(t, id)

	a, err := store.GetAtom(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "HandleAuth", a.Name)
	assert.Equal(t, "auth.go", a.SourcePath)
	assert.Equal(t, 1, CountAtoms(t, store))
}

// TestLinkTestAtoms verifies edge seeding.
func TestLinkTestAtoms(t *testing.T) {
	store := SetupTestStore(t)

	caller := PutTestAtom(t, store, "main.go", "main", "func main() { helper() }")
	callee := PutTestAtom(t, store, "main.go", "helper", "func helper() {}")
	LinkTestAtoms(t, store, caller, atom.Calls, callee)

	edges, err := store.OutEdges(context.Background(), caller, nil)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, callee, edges[0].Dst)
}

// TestMultipleInserts verifies multiple atoms can be seeded.
func TestMultipleInserts(t *testing.T) {
	store := SetupTestStore(t)

	PutTestAtom(t, store, "main.go", "Main", "func Main() {}")
	PutTestAtom(t, store, "util.go", "Helper", "func Helper() int { return 1 }")
	PutTestAtom(t, store, "processor.go", "Process", "func Process() error { return nil }")

	assert.Equal(t, 3, CountAtoms(t, store))
}

// TestStoreIsolation verifies each test gets an isolated store.
func TestStoreIsolation(t *testing.T) {
	// Create first store and add data
	store1 := SetupTestStore(t)
	PutTestAtom(t, store1, "file1.go", "Test1", "func Test1() {}")

	// Create second store - should be empty
	store2 := SetupTestStore(t)
	assert.Equal(t, 0, CountAtoms(t, store2), "Second store should be isolated from first")

	// Verify first store still has data
	assert.Equal(t, 1, CountAtoms(t, store1))
}
