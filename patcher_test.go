// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ppatch_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blightmarch/ppatch"
)

// newPatchers builds one instance of each RowPatcher variant over the same
// geometry and row width, for cross-variant equivalence checks.
func newPatchers(geo ppatch.Geometry[uint32], rowWords int) []ppatch.RowPatcher[uint32] {
	return []ppatch.RowPatcher[uint32]{
		ppatch.NewSparseArrayPatcher(geo, rowWords),
		ppatch.NewLinkedListPatcher(geo, rowWords),
	}
}

func words(vals ...uint32) []ppatch.Unaligned[uint32] {
	buf := make([]byte, 4*len(vals))
	out := ppatch.ToUnalignedSlice[uint32](buf)
	for i, v := range vals {
		out[i].Store(v)
	}
	return out
}

func loadAll(ws []ppatch.Unaligned[uint32]) []uint32 {
	out := make([]uint32, len(ws))
	for i := range ws {
		out[i] = ws[i].Load()
	}
	return out
}

func TestRoundTrip_SingleBitChange(t *testing.T) {
	t.Parallel()

	geo := ppatch.Geometry[uint32]{{FieldStart: 0, Offset: 0, Mask: 0xFFFFFFFF}}

	for _, p := range newPatchers(geo, 1) {
		before := words(0x0000_0001)
		after := words(0x0000_0002)

		id, ok := p.CreatePatch(before, after)
		require.True(t, ok)

		live := words(0x0000_0002)
		p.RestorePatch(id, live)
		require.Equal(t, []uint32{0x0000_0001}, loadAll(live))
	}
}

func TestOcclusion_FullFieldOverwrite(t *testing.T) {
	t.Parallel()

	geo := ppatch.Geometry[uint32]{{FieldStart: 0, Offset: 0, Mask: 0xFFFFFFFF}}

	for _, p := range newPatchers(geo, 1) {
		live := words(0x00)

		id1, ok := p.CreatePatch(words(0x00), words(0xAA))
		require.True(t, ok)
		live = words(0xAA)

		id2, ok := p.CreatePatch(words(0xAA), words(0xBB))
		require.True(t, ok)
		live = words(0xBB)

		p.RestorePatch(id1, live)
		require.Equal(t, []uint32{0xBB}, loadAll(live), "p2 should fully occlude p1")

		p.RestorePatch(id2, live)
		require.Equal(t, []uint32{0x00}, loadAll(live))
	}
}

func TestPartialOcclusion_Bitfields(t *testing.T) {
	t.Parallel()

	geo := ppatch.Geometry[uint32]{
		{FieldStart: 0, Offset: 0, Mask: 0x0000FFFF}, // low 16 bits: field A
		{FieldStart: 1, Offset: 0, Mask: 0xFFFF0000}, // high 16 bits: field B
	}

	for _, p := range newPatchers(geo, 1) {
		live := words(0x0000_0000)

		id1, ok := p.CreatePatch(words(0x0000_0000), words(0x0000_1111))
		require.True(t, ok)
		live = words(0x0000_1111)

		id2, ok := p.CreatePatch(words(0x0000_1111), words(0x2222_1111))
		require.True(t, ok)
		live = words(0x2222_1111)

		p.RestorePatch(id1, live)
		require.Equal(t, []uint32{0x2222_0000}, loadAll(live))

		p.RestorePatch(id2, live)
		require.Equal(t, []uint32{0x0000_0000}, loadAll(live))
	}
}

func TestOutOfOrderRevert_ThreeIndependentFields(t *testing.T) {
	t.Parallel()

	geo := ppatch.Geometry[uint32]{
		{FieldStart: 0, Offset: 0, Mask: 0xFFFFFFFF},
		{FieldStart: 1, Offset: 1, Mask: 0xFFFFFFFF},
		{FieldStart: 2, Offset: 2, Mask: 0xFFFFFFFF},
	}

	for _, p := range newPatchers(geo, 3) {
		orig := []uint32{0x10, 0x20, 0x30}
		live := words(orig...)

		id1, ok := p.CreatePatch(words(0x10, 0x20, 0x30), words(0x11, 0x20, 0x30))
		require.True(t, ok)
		live = words(0x11, 0x20, 0x30)

		id2, ok := p.CreatePatch(words(0x11, 0x20, 0x30), words(0x11, 0x21, 0x30))
		require.True(t, ok)
		live = words(0x11, 0x21, 0x30)

		id3, ok := p.CreatePatch(words(0x11, 0x21, 0x30), words(0x11, 0x21, 0x31))
		require.True(t, ok)
		live = words(0x11, 0x21, 0x31)

		p.RestorePatch(id2, live)
		require.Equal(t, []uint32{0x11, 0x20, 0x31}, loadAll(live))

		p.RestorePatch(id1, live)
		require.Equal(t, []uint32{0x10, 0x20, 0x31}, loadAll(live))

		p.RestorePatch(id3, live)
		require.Equal(t, orig, loadAll(live))
	}
}

func TestFieldSpanningTwoWords(t *testing.T) {
	t.Parallel()

	geo := ppatch.Geometry[uint32]{
		{FieldStart: 0, Offset: 0, Mask: 0xFFFFFFFF},
		{FieldStart: 0, Offset: 1, Mask: 0x0000FFFF},
	}

	for _, p := range newPatchers(geo, 2) {
		orig := []uint32{0x1234_5678, 0x0000_9ABC}
		live := words(orig...)

		// Mutate only the high half (word 1).
		id, ok := p.CreatePatch(words(0x1234_5678, 0x0000_9ABC), words(0x1234_5678, 0x0000_0001))
		require.True(t, ok)
		live = words(0x1234_5678, 0x0000_0001)

		p.RestorePatch(id, live)
		require.Equal(t, orig, loadAll(live))
	}
}

func TestZeroDiffEdit_IsNoOp(t *testing.T) {
	t.Parallel()

	geo := ppatch.Geometry[uint32]{{FieldStart: 0, Offset: 0, Mask: 0xFFFFFFFF}}

	for _, p := range newPatchers(geo, 1) {
		live := words(0x42)
		id, ok := p.CreatePatch(words(0x42), words(0x42))
		require.True(t, ok)

		p.RestorePatch(id, live)
		require.Equal(t, []uint32{0x42}, loadAll(live))
	}
}

func TestSparseArray_RestoreUnaffectedByOtherPatcher(t *testing.T) {
	t.Parallel()

	geo := ppatch.Geometry[uint32]{{FieldStart: 0, Offset: 0, Mask: 0xFFFFFFFF}}
	p := ppatch.NewSparseArrayPatcher(geo, 1)

	live := words(0)
	id, ok := p.CreatePatch(words(0), words(1))
	require.True(t, ok)
	live = words(1)

	// Create and restore several disposable patches on a second patcher
	// over the same geometry, then confirm the original patch still
	// restores correctly.
	scratch := ppatch.NewSparseArrayPatcher(geo, 1)
	scratchLive := words(0)
	for range 5 {
		sid, ok := scratch.CreatePatch(words(0), words(7))
		require.True(t, ok)
		scratch.RestorePatch(sid, scratchLive)
	}

	p.RestorePatch(id, live)
	require.Equal(t, []uint32{0}, loadAll(live))
}
