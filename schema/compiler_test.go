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

package schema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blightmarch/ppatch/schema"
)

func TestCompile_BitfieldsSharingAWordKeepSeparateBlocks(t *testing.T) {
	def := &schema.Paramdef{
		Fields: []schema.DefField{
			field(t, "s16 a:3"),
			field(t, "s16 b:5"),
		},
	}
	schema.ComputeFieldOffsets(def, 0)

	geo := schema.Compile(def)
	require.Len(t, geo, 2, "each bitfield keeps its own block even when sharing a word")
	require.Equal(t, geo[0].Offset, geo[1].Offset)
	require.NotEqual(t, geo[0].FieldStart, geo[1].FieldStart)
	require.Equal(t, uint32(0b0111), geo[0].Mask)
	require.Equal(t, uint32(0b1111_1000), geo[1].Mask)
}

func TestCompile_FieldsInConsecutiveWords(t *testing.T) {
	def := &schema.Paramdef{
		Fields: []schema.DefField{
			field(t, "u32 lo"),
			field(t, "u16 hi"),
		},
	}
	schema.ComputeFieldOffsets(def, 0)

	geo := schema.Compile(def)
	require.Len(t, geo, 2)
	require.Equal(t, uint16(0), geo[0].Offset)
	require.Equal(t, uint32(0xFFFFFFFF), geo[0].Mask)
	require.Equal(t, uint16(1), geo[1].Offset)
	require.Equal(t, uint32(0x0000FFFF), geo[1].Mask)
}

func TestCompile_DisabledFieldsProduceNoBlocks(t *testing.T) {
	removed := uint64(1)
	def := &schema.Paramdef{
		Fields: []schema.DefField{
			field(t, "u32 a"),
			{Def: mustDef(t, "u32 b"), RemovedVersion: &removed},
		},
	}
	schema.ComputeFieldOffsets(def, 5)

	geo := schema.Compile(def)
	require.Len(t, geo, 1)
}
