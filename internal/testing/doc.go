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

// Package testing provides test helpers for graph-store integration
// tests.
//
// # Quick Start
//
// Use SetupTestStore to create an in-memory store with the schema
// already bootstrapped:
//
//	func TestMyFeature(t *testing.T) {
//	    store := testing.SetupTestStore(t)
//
//	    // Store is ready with the graph schema initialized
//	    id := testing.PutTestAtom(t, store, "test.go", "TestFunc", "func TestFunc() {}")
//
//	    // Query and verify
//	    a, err := store.GetAtom(ctx, id)
//	    require.NoError(t, err)
//	}
//
// # Seeding Test Data
//
// The package provides helpers for seeding common test entities:
//   - PutTestAtom: Store a function atom built from a content string
//   - LinkTestAtoms: Record an edge between two stored atoms
//   - CountAtoms: Read the store's atom count
//
// All helpers fail the test on error, so call sites stay flat.
package testing
