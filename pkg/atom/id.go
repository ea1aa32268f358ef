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

package atom

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// IDPrefix and IDAlgorithm are fixed at store creation and recorded in
// the store's manifest; ids render as "atom:<hash-alg>:<hex>".
const (
	IDPrefix    = "atom"
	IDAlgorithm = "sha256"
)

// GenerateID computes the content-address of content: a prefixed,
// hex-encoded SHA-256 digest of the exact byte range. An atom's
// identity is a pure function of its bytes alone, so two atoms with
// identical content across different files collapse to the same id.
func GenerateID(content []byte) string {
	hash := sha256.Sum256(content)
	return fmt.Sprintf("%s:%s:%s", IDPrefix, IDAlgorithm, hex.EncodeToString(hash[:]))
}
