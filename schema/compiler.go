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

import "github.com/blightmarch/ppatch"

// wordBits is the width, in bits, of one geometry word. The compiler
// currently targets [ppatch.Unaligned]'s default 32-bit word (spec §3).
const wordBits = 32

// Compile lowers def's already-offset-computed fields (see
// [ComputeFieldOffsets]) to a [ppatch.Geometry], per spec §4.2 step 5: each
// enabled field's bit span is walked in word-sized strides, emitting one
// [ppatch.FieldBlock] per word it touches. All blocks belonging to the same
// field share FieldStart, the index of the first block emitted for it.
func Compile(def *Paramdef) ppatch.Geometry[uint32] {
	var geo ppatch.Geometry[uint32]

	for i := range def.Fields {
		f := &def.Fields[i]
		if f.BitOffset == nil {
			continue
		}

		fieldStart := uint16(len(geo))
		bitStart := *f.BitOffset
		bitEnd := bitStart + f.sizeBits()

		for bit := bitStart; bit < bitEnd; {
			word := bit / wordBits
			wordBitStart := bit % wordBits
			wordBitEnd := min(wordBits, bitEnd-word*wordBits)

			var mask uint32
			for b := wordBitStart; b < wordBitEnd; b++ {
				mask |= 1 << uint(b)
			}

			geo = appendOrMergeBlock(geo, ppatch.FieldBlock[uint32]{
				FieldStart: fieldStart,
				Offset:     uint16(word),
				Mask:       mask,
			})

			bit = (word + 1) * wordBits
		}
	}

	return geo
}

// appendOrMergeBlock appends fb to geo, OR-merging it into the previous
// block only when both belong to the same field and share a word offset.
// Blocks of two different fields that share a word stay separate entries,
// so each keeps its own FieldStart.
func appendOrMergeBlock(geo ppatch.Geometry[uint32], fb ppatch.FieldBlock[uint32]) ppatch.Geometry[uint32] {
	if n := len(geo); n > 0 && geo[n-1].Offset == fb.Offset && geo[n-1].FieldStart != fb.FieldStart {
		// A genuinely new field landed in the same word as the field
		// directly before it (two adjacent sub-word bitfields sharing a
		// word): keep both blocks distinct, since FieldStart still needs
		// to identify each field separately for CreatePatch's per-field
		// scan. Co-packing only collapses repeated blocks of the *same*
		// field below.
		return append(geo, fb)
	}
	if n := len(geo); n > 0 && geo[n-1].Offset == fb.Offset && geo[n-1].FieldStart == fb.FieldStart {
		geo[n-1].Mask |= fb.Mask
		return geo
	}
	return append(geo, fb)
}
