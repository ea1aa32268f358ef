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

// Package atom defines the data model shared by every stage of the
// atomization pipeline: the Atom and Edge value types, the virtual-view
// result shape, and the content-addressed identifier scheme that binds
// an atom's id to its exact byte content.
//
// Nothing in this package touches storage or parsing; it exists so that
// pkg/parse, pkg/extract, pkg/storage, pkg/view and pkg/ingestion can
// all agree on one vocabulary without importing each other.
package atom
