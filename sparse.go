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

package ppatch

import "github.com/blightmarch/ppatch/internal/debug"

// patchedBlock is one word-sized XOR entry of a rowDiff.
type patchedBlock[W Word] struct {
	diff   W
	mask   W
	offset uint16
}

// rowDiff is the sparse-array patcher's patch record: a compacted,
// offset-sorted sequence of patchedBlocks.
type rowDiff[W Word] struct {
	id     RowPatchId
	blocks []patchedBlock[W]
}

type maskSlot[W Word] struct {
	value W
	step  uint32
}

// SparseArrayPatcher is optimised for short, recent-patch revert latency and
// small patches (spec §4.5).
type SparseArrayPatcher[W Word] struct {
	geometry       Geometry[W]
	rowWords       int
	blocksByOffset [][]FieldBlock[W]

	diffStack    []*rowDiff[W]
	combinedMask []maskSlot[W]
	stepCounter  uint32
	idCounter    RowPatchId
}

var _ RowPatcher[uint32] = (*SparseArrayPatcher[uint32])(nil)

// NewSparseArrayPatcher builds a patcher bound to geometry and a row of
// rowWords words. geometry must already be sorted per [FieldBlock]'s
// invariants; it is borrowed, not copied.
func NewSparseArrayPatcher[W Word](geometry Geometry[W], rowWords int) *SparseArrayPatcher[W] {
	byOffset := make([][]FieldBlock[W], rowWords)
	for _, fb := range geometry {
		byOffset[fb.Offset] = append(byOffset[fb.Offset], fb)
	}

	return &SparseArrayPatcher[W]{
		geometry:       geometry,
		rowWords:       rowWords,
		blocksByOffset: byOffset,
		combinedMask:   make([]maskSlot[W], rowWords),
		stepCounter:    1,
	}
}

// CreatePatch implements [RowPatcher].
func (p *SparseArrayPatcher[W]) CreatePatch(before, after []Unaligned[W]) (RowPatchId, bool) {
	debug.Assert(len(before) == p.rowWords, "before has %d words, want %d", len(before), p.rowWords)
	debug.Assert(len(after) == p.rowWords, "after has %d words, want %d", len(after), p.rowWords)

	var blocks []patchedBlock[W]
	for w := range p.rowWords {
		diff := before[w].Load() ^ after[w].Load()
		if diff == 0 {
			continue
		}

		var wordMask W
		for _, fb := range p.blocksByOffset[w] {
			if fb.Mask&diff != 0 {
				wordMask |= fb.Mask
			}
		}
		if wordMask == 0 {
			continue
		}

		blocks = append(blocks, patchedBlock[W]{
			diff:   diff & wordMask,
			mask:   wordMask,
			offset: uint16(w),
		})
	}

	id := p.idCounter
	p.idCounter++
	p.diffStack = append(p.diffStack, &rowDiff[W]{id: id, blocks: blocks})
	return id, true
}

// RestorePatch implements [RowPatcher].
func (p *SparseArrayPatcher[W]) RestorePatch(id RowPatchId, live []Unaligned[W]) {
	idx := -1
	for i := len(p.diffStack) - 1; i >= 0; i-- {
		if p.diffStack[i].id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		debug.Assert(false, "restore_patch: id %d not found", id)
		return
	}

	detached := p.diffStack[idx]
	p.diffStack = append(p.diffStack[:idx], p.diffStack[idx+1:]...)

	p.stepCounter++
	if p.stepCounter == 0 {
		clear(p.combinedMask)
		p.stepCounter = 1
	}

	// Every diff still above the detached one occludes it; accumulate their
	// masks so we know which of the detached diff's bits remain hidden.
	for _, above := range p.diffStack[idx:] {
		for _, b := range above.blocks {
			slot := &p.combinedMask[b.offset]
			if slot.step != p.stepCounter {
				slot.value = 0
				slot.step = p.stepCounter
			}
			slot.value |= b.mask
		}
	}

	var retained []patchedBlock[W]
	for _, b := range detached.blocks {
		slot := p.combinedMask[b.offset]
		var hidden W
		if slot.step == p.stepCounter {
			hidden = slot.value
		}

		live[b.offset].Xor(b.diff &^ hidden)

		if newMask := b.mask & hidden; newMask != 0 {
			retained = append(retained, patchedBlock[W]{
				diff:   b.diff & hidden,
				mask:   newMask,
				offset: b.offset,
			})
		}
	}

	if len(retained) == 0 {
		return
	}

	// idx now names the nearest still-occluding diff (the one immediately
	// above the one we just removed); fold the hidden residue into it so a
	// later restore of that diff still reveals these bits correctly.
	debug.Assert(idx < len(p.diffStack), "retained bits with nothing above to absorb them")
	target := p.diffStack[idx]
	target.blocks = mergeBlocks(target.blocks, retained)
}

// mergeBlocks merges two offset-sorted patchedBlock lists, combining entries
// that share an offset.
func mergeBlocks[W Word](a, b []patchedBlock[W]) []patchedBlock[W] {
	out := make([]patchedBlock[W], 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].offset == b[j].offset:
			out = append(out, patchedBlock[W]{
				diff:   a[i].diff ^ b[j].diff,
				mask:   a[i].mask | b[j].mask,
				offset: a[i].offset,
			})
			i++
			j++
		case a[i].offset < b[j].offset:
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
