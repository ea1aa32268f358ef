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

package atom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateID_Format(t *testing.T) {
	id := GenerateID([]byte("func f() {}"))

	assert.True(t, strings.HasPrefix(id, "atom:sha256:"))
	// sha256 hex digest is 64 characters.
	assert.Len(t, id, len("atom:sha256:")+64)
}

func TestGenerateID_PureFunctionOfContent(t *testing.T) {
	a := GenerateID([]byte("func f() {}"))
	b := GenerateID([]byte("func f() {}"))
	c := GenerateID([]byte("func g() {}"))

	assert.Equal(t, a, b, "identical content must share an id")
	assert.NotEqual(t, a, c)
}

func TestKindPriority_Ordering(t *testing.T) {
	// Constants and aliases sort before types, types before functions,
	// modules last.
	assert.Less(t, KindConstant.Priority(), KindStruct.Priority())
	assert.Equal(t, KindConstant.Priority(), KindTypeAlias.Priority())
	assert.Less(t, KindStruct.Priority(), KindFunction.Priority())
	assert.Equal(t, KindStruct.Priority(), KindInterface.Priority())
	assert.Less(t, KindFunction.Priority(), KindModule.Priority())

	// Unknown kinds sort after everything.
	assert.Greater(t, Kind("widget").Priority(), KindModule.Priority())
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{1, 1},
		{4, 1},
		{5, 2},
		{11, 3},
		{4000, 1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateTokens(tt.n), "EstimateTokens(%d)", tt.n)
	}
}

func TestDefaultExpansionPolicy(t *testing.T) {
	pol := DefaultExpansionPolicy()

	assert.Equal(t, 2, pol.MaxDepth)
	assert.Equal(t, 20, pol.MaxAtoms)
	assert.Equal(t, 4000, pol.MaxTokens)
	assert.Equal(t, []EdgeType{Imports, TypeRef}, pol.Follow)
	assert.False(t, pol.AlwaysIncludeTypes)
	assert.False(t, pol.SignaturesOnly)
}

func TestWarningString(t *testing.T) {
	w := Warning{Kind: WarnParse, SourcePath: "a.go", Detail: "unexpected token"}
	assert.Equal(t, "ParseError: a.go: unexpected token", w.String())

	w = Warning{Kind: WarnAmbiguous, Detail: "two candidates"}
	assert.Equal(t, "AmbiguousSymbol: two candidates", w.String())
}
