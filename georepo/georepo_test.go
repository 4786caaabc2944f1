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

package georepo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blightmarch/ppatch"
	"github.com/blightmarch/ppatch/georepo"
)

func TestBuildLoadLookup(t *testing.T) {
	repo := map[string][]ppatch.FieldBlock[uint32]{
		"EQUIP_PARAM_WEAPON_ST": {
			{FieldStart: 0, Offset: 0, Mask: 0xFFFFFFFF},
			{FieldStart: 1, Offset: 1, Mask: 0x0000FFFF},
		},
		"SP_EFFECT_PARAM": {
			{FieldStart: 0, Offset: 0, Mask: 0xFFFF0000},
		},
		"NPC_PARAM_ST": nil,
	}

	blob := georepo.Build(repo)
	loaded, err := georepo.Load(blob)
	require.NoError(t, err)

	got := loaded.Lookup("EQUIP_PARAM_WEAPON_ST")
	require.Equal(t, repo["EQUIP_PARAM_WEAPON_ST"], got)

	got = loaded.Lookup("SP_EFFECT_PARAM")
	require.Equal(t, repo["SP_EFFECT_PARAM"], got)

	require.Empty(t, loaded.Lookup("NPC_PARAM_ST"))
	require.Nil(t, loaded.Lookup("DOES_NOT_EXIST"))
}

func TestLoad_RejectsBadMagic(t *testing.T) {
	_, err := georepo.Load(make([]byte, 64))
	require.ErrorIs(t, err, georepo.ErrBadMagic)
}

func TestLoad_RejectsTruncated(t *testing.T) {
	_, err := georepo.Load(make([]byte, 4))
	require.ErrorIs(t, err, georepo.ErrTruncated)
}
