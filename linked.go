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

// nullSlot is the sentinel slot index meaning "no diff".
const nullSlot uint16 = 0xFFFF

// maxSlots is the largest number of concurrently live patches a
// [LinkedListPatcher] can hold; slot indices are 16-bit and nullSlot is
// reserved.
const maxSlots = int(nullSlot)

// patchedFieldRef addresses a patchedField by (slot, index-within-slot)
// rather than by pointer, so the per-field chains can live alongside a
// freelist without becoming unsafe to move or cycle.
type patchedFieldRef struct {
	slot  uint16
	index uint16
}

func (r patchedFieldRef) isNull() bool { return r.slot == nullSlot }

var nullRef = patchedFieldRef{slot: nullSlot}

// patchedField is one diff's participation in one logical field's occlusion
// chain, most-recent-first.
type patchedField struct {
	fieldStart uint16
	diffStart  uint16
	prev, next patchedFieldRef
}

// linkedRowDiff is the linked-list patcher's patch record.
type linkedRowDiff[W Word] struct {
	blockDiffs    []W
	patchedFields []patchedField
}

// LinkedListPatcher offers uniform complexity for restoring deeply buried
// patches, independent of stack depth (spec §4.6).
type LinkedListPatcher[W Word] struct {
	geometry Geometry[W]
	rowWords int

	fieldOrder  []uint16
	fieldGroups map[uint16][]FieldBlock[W]

	slots    []linkedRowDiff[W]
	freeList []uint16

	patchedFieldHeads map[uint16]patchedFieldRef
}

var _ RowPatcher[uint32] = (*LinkedListPatcher[uint32])(nil)

// NewLinkedListPatcher builds a patcher bound to geometry and a row of
// rowWords words.
func NewLinkedListPatcher[W Word](geometry Geometry[W], rowWords int) *LinkedListPatcher[W] {
	groups := make(map[uint16][]FieldBlock[W])
	var order []uint16
	for _, fb := range geometry {
		if _, ok := groups[fb.FieldStart]; !ok {
			order = append(order, fb.FieldStart)
		}
		groups[fb.FieldStart] = append(groups[fb.FieldStart], fb)
	}

	return &LinkedListPatcher[W]{
		geometry:          geometry,
		rowWords:          rowWords,
		fieldOrder:        order,
		fieldGroups:       groups,
		patchedFieldHeads: make(map[uint16]patchedFieldRef, len(order)),
	}
}

func (p *LinkedListPatcher[W]) head(fieldStart uint16) patchedFieldRef {
	if r, ok := p.patchedFieldHeads[fieldStart]; ok {
		return r
	}
	return nullRef
}

func (p *LinkedListPatcher[W]) pf(ref patchedFieldRef) *patchedField {
	return &p.slots[ref.slot].patchedFields[ref.index]
}

// CreatePatch implements [RowPatcher].
func (p *LinkedListPatcher[W]) CreatePatch(before, after []Unaligned[W]) (RowPatchId, bool) {
	debug.Assert(len(before) == p.rowWords, "before has %d words, want %d", len(before), p.rowWords)
	debug.Assert(len(after) == p.rowWords, "after has %d words, want %d", len(after), p.rowWords)

	diffs := make([]W, p.rowWords)
	for w := range p.rowWords {
		diffs[w] = before[w].Load() ^ after[w].Load()
	}

	slot, ok := p.allocate()
	if !ok {
		return 0, false
	}

	var diff linkedRowDiff[W]
	for _, fieldStart := range p.fieldOrder {
		blocks := p.fieldGroups[fieldStart]

		changed := false
		for _, fb := range blocks {
			if fb.Mask&diffs[fb.Offset] != 0 {
				changed = true
				break
			}
		}
		if !changed {
			continue
		}

		// One diff word per block, even when two blocks of this field share
		// an Offset; masks are disjoint so this never double-XORs, it just
		// costs a word more than the minimum for multi-block fields.
		diffStart := len(diff.blockDiffs)
		for _, fb := range blocks {
			diff.blockDiffs = append(diff.blockDiffs, diffs[fb.Offset]&fb.Mask)
		}

		newRef := patchedFieldRef{slot: slot, index: uint16(len(diff.patchedFields))}
		oldHead := p.head(fieldStart)
		diff.patchedFields = append(diff.patchedFields, patchedField{
			fieldStart: fieldStart,
			diffStart:  uint16(diffStart),
			prev:       nullRef,
			next:       oldHead,
		})
		if !oldHead.isNull() {
			p.pf(oldHead).prev = newRef
		}
		p.patchedFieldHeads[fieldStart] = newRef
	}

	p.slots[slot] = diff
	return RowPatchId(slot), true
}

// RestorePatch implements [RowPatcher].
func (p *LinkedListPatcher[W]) RestorePatch(id RowPatchId, live []Unaligned[W]) {
	slot := uint16(id)
	debug.Assert(int(slot) < len(p.slots), "restore_patch: slot %d out of range", slot)

	diff := p.slots[slot]
	for i := range diff.patchedFields {
		pf := diff.patchedFields[i]
		blocks := p.fieldGroups[pf.fieldStart]

		var (
			targetDiffs []W
			targetStart uint16
			toLive      bool
		)
		if pf.prev.isNull() {
			toLive = true
		} else {
			prevDiff := &p.slots[pf.prev.slot]
			prevPF := &prevDiff.patchedFields[pf.prev.index]
			targetDiffs = prevDiff.blockDiffs
			targetStart = prevPF.diffStart
		}

		for bi, fb := range blocks {
			orig := diff.blockDiffs[int(pf.diffStart)+bi]
			contribution := orig & fb.Mask
			if toLive {
				live[fb.Offset].Xor(contribution)
			} else {
				targetDiffs[int(targetStart)+bi] ^= contribution
			}
		}

		// Splice this node out of its per-field chain.
		if pf.prev.isNull() {
			p.patchedFieldHeads[pf.fieldStart] = pf.next
		} else {
			p.pf(pf.prev).next = pf.next
		}
		if !pf.next.isNull() {
			p.pf(pf.next).prev = pf.prev
		}
	}

	p.slots[slot] = linkedRowDiff[W]{}
	p.freeList = append(p.freeList, slot)
}

// allocate reserves a fresh slot, reusing a freed one when available.
func (p *LinkedListPatcher[W]) allocate() (uint16, bool) {
	if n := len(p.freeList); n > 0 {
		slot := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return slot, true
	}
	if len(p.slots) >= maxSlots {
		return 0, false
	}
	p.slots = append(p.slots, linkedRowDiff[W]{})
	return uint16(len(p.slots) - 1), true
}
