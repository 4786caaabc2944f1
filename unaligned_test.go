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
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blightmarch/ppatch"
)

func TestUnalignedSlice_AliasesUnderlyingBytes(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 12)
	words := ppatch.ToUnalignedSlice[uint32](buf)
	require.Len(t, words, 3)

	words[1].Store(0xDEADBEEF)
	assert.Equal(t, uint32(0xDEADBEEF), binary.LittleEndian.Uint32(buf[4:8]))

	binary.LittleEndian.PutUint32(buf[8:12], 0x12345678)
	assert.Equal(t, uint32(0x12345678), words[2].Load())
}

func TestUnalignedSlice_Misaligned(t *testing.T) {
	t.Parallel()

	// Deliberately start the word view at a misaligned byte offset by
	// slicing a larger buffer.
	buf := make([]byte, 9)
	words := ppatch.ToUnalignedSlice[uint32](buf[1:])
	require.Len(t, words, 2)

	words[0].Store(1)
	words[1].Xor(0xFF)
	assert.Equal(t, uint32(1), words[0].Load())
	assert.Equal(t, uint32(0xFF), words[1].Load())
}

func TestUnaligned_Ops(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 4)
	w := ppatch.ToUnalignedSlice[uint32](buf)[0]

	assert.True(t, w.IsZero())
	w.Or(0b1010)
	w.And(0b1100)
	assert.Equal(t, uint32(0b1000), w.Load())
	w.Xor(0b1000)
	assert.True(t, w.IsZero())
}

func TestUnalignedSlice_TrailingPartialWordDropped(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 5)
	words := ppatch.ToUnalignedSlice[uint32](buf)
	assert.Len(t, words, 1)
}
