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

func field(t *testing.T, s string) schema.DefField {
	t.Helper()
	dt, err := schema.ParseDefType(s)
	require.NoError(t, err)
	return schema.DefField{Def: dt}
}

func TestParseDefType_Scalar(t *testing.T) {
	dt, err := schema.ParseDefType("u32 someField")
	require.NoError(t, err)
	require.Equal(t, "someField", dt.Name)
	require.Equal(t, schema.U32, dt.BaseType)
	require.Equal(t, schema.ModifierNone, dt.Modifier.Kind)
}

func TestParseDefType_Array(t *testing.T) {
	dt, err := schema.ParseDefType("u8 pad[12]")
	require.NoError(t, err)
	require.Equal(t, schema.ModifierArray, dt.Modifier.Kind)
	require.Equal(t, 12, dt.Modifier.ArrayLen)
}

func TestParseDefType_Bitfield(t *testing.T) {
	dt, err := schema.ParseDefType("s16 flags:3")
	require.NoError(t, err)
	require.Equal(t, schema.ModifierBitfield, dt.Modifier.Kind)
	require.Equal(t, 3, dt.Modifier.BitfieldLen)
}

func TestParseDefType_WithDefault(t *testing.T) {
	dt, err := schema.ParseDefType("f32 scale = 1.0")
	require.NoError(t, err)
	require.Equal(t, "scale", dt.Name)
}

func TestComputeFieldOffsets_BitfieldCoPacking(t *testing.T) {
	def := &schema.Paramdef{
		Fields: []schema.DefField{
			field(t, "s16 a:3"),
			field(t, "s16 b:5"),
			field(t, "u32 next"),
		},
	}

	size := schema.ComputeFieldOffsets(def, 0)

	require.NotNil(t, def.Fields[0].BitOffset)
	require.Equal(t, 0, *def.Fields[0].BitOffset)
	require.NotNil(t, def.Fields[1].BitOffset)
	require.Equal(t, 3, *def.Fields[1].BitOffset, "adjacent same-type bitfields co-pack")
	require.NotNil(t, def.Fields[2].BitOffset)
	require.Equal(t, 32, *def.Fields[2].BitOffset, "non-bitfield rounds up to its own alignment")
	require.Equal(t, 8, size)
}

func TestComputeFieldOffsets_OverflowingBitfieldStartsNewWord(t *testing.T) {
	def := &schema.Paramdef{
		Fields: []schema.DefField{
			field(t, "u8 a:6"),
			field(t, "u8 b:6"), // 6+6=12 > 8 bits, cannot co-pack
		},
	}

	schema.ComputeFieldOffsets(def, 0)

	require.Equal(t, 0, *def.Fields[0].BitOffset)
	require.Equal(t, 8, *def.Fields[1].BitOffset)
}

func TestComputeFieldOffsets_VersionFiltering(t *testing.T) {
	removed := uint64(10)
	def := &schema.Paramdef{
		Fields: []schema.DefField{
			field(t, "u32 a"),
			{Def: mustDef(t, "u32 b"), RemovedVersion: &removed},
			field(t, "u32 c"),
		},
	}

	schema.ComputeFieldOffsets(def, 20)

	require.NotNil(t, def.Fields[0].BitOffset)
	require.Nil(t, def.Fields[1].BitOffset, "field removed at version 10 is disabled at version 20")
	require.NotNil(t, def.Fields[2].BitOffset)
	require.Equal(t, 32, *def.Fields[2].BitOffset, "a disabled field is skipped, not offset-consuming")
}

func mustDef(t *testing.T, s string) schema.DefType {
	t.Helper()
	dt, err := schema.ParseDefType(s)
	require.NoError(t, err)
	return dt
}
