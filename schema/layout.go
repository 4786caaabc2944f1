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

package schema

// ComputeFieldOffsets walks def's fields in declared order and assigns each
// enabled field a bit_offset, per spec §4.2 steps 2-4. Disabled fields (not
// enabled for version) are left with a nil BitOffset and are skipped by
// everything downstream. Returns the row size in bytes.
//
// Ported from original_source/paramdex/src/paramdef.rs's
// compute_field_offsets/compute_bit_offset.
func ComputeFieldOffsets(def *Paramdef, version uint64) int {
	var (
		bitOffset int
		lastField = -1
		alignBits = 8
	)

	for i := range def.Fields {
		f := &def.Fields[i]
		if !f.EnabledForVersion(version) {
			f.BitOffset = nil
			continue
		}

		if lastField >= 0 {
			bitOffset = computeBitOffset(f.Def, bitOffset, def.Fields[lastField].Def)
		} else {
			bitOffset = 0
		}

		if a := f.alignmentBits(); a > alignBits {
			alignBits = a
		}
		off := bitOffset
		f.BitOffset = &off
		lastField = i
	}

	lastSize := 0
	if lastField >= 0 {
		lastSize = def.Fields[lastField].sizeBits()
	}
	bitOffset = roundUp(bitOffset+lastSize, alignBits)

	return bitOffset / 8
}

// computeBitOffset decides the bit offset of a field immediately following
// prev, which sits at prevOffset. Two adjacent bitfields whose base types
// have the same size are co-packed into one word when they still fit; any other
// adjacency advances past prev's full width and rounds up to this field's
// alignment.
//
// The "round up to the new field's alignment" branch is the behavior named
// in spec §9's Open Question for a bitfield following a non-bitfield (or
// vice versa); see DESIGN.md for why it is applied unconditionally here.
func computeBitOffset(cur DefType, prevOffset int, prev DefType) int {
	if cur.Modifier.Kind == ModifierBitfield && prev.Modifier.Kind == ModifierBitfield &&
		cur.BaseType.sizeBytes() == prev.BaseType.sizeBytes() {
		alignBits := cur.BaseType.sizeBytes() * 8
		bitShift := prevOffset & (alignBits - 1)
		if bitShift+prev.sizeBits()+cur.sizeBits() <= alignBits {
			return prevOffset + prev.sizeBits()
		}
	}

	nextOffset := prevOffset + prev.sizeBits()
	alignBits := cur.BaseType.sizeBytes() * 8
	return roundUp(nextOffset, alignBits)
}

func roundUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
