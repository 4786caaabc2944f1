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

package table_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blightmarch/ppatch/internal/table"
)

func TestLookup_RoundTrips(t *testing.T) {
	entries := []table.Entry[uint32]{
		{Key: 1, Value: 100},
		{Key: 2, Value: 200},
		{Key: 17, Value: 1700}, // collides with 1 under some bucket counts.
		{Key: -5, Value: 500},
	}

	_, tbl := table.New[uint32](nil, entries...)

	for _, e := range entries {
		v := tbl.Lookup(e.Key)
		require.NotNil(t, v, "key %d", e.Key)
		assert.Equal(t, e.Value, *v)
	}
}

func TestLookup_MissingKeyReturnsNil(t *testing.T) {
	_, tbl := table.New[uint32](nil, table.Entry[uint32]{Key: 1, Value: 100})

	assert.Nil(t, tbl.Lookup(2))
}

func TestLookup_EmptyTable(t *testing.T) {
	_, tbl := table.New[uint32](nil)

	assert.Nil(t, tbl.Lookup(0))
}

func TestNew_AppendsToExistingBuffer(t *testing.T) {
	prefix := []byte{0xAA, 0xBB, 0xCC, 0xDD}

	out, tbl := table.New[uint32](prefix, table.Entry[uint32]{Key: 9, Value: 90})

	assert.True(t, len(out) > len(prefix))
	assert.Equal(t, prefix, out[:len(prefix)])

	v := tbl.Lookup(9)
	require.NotNil(t, v)
	assert.Equal(t, uint32(90), *v)
}

func TestNew_ManyEntriesSurviveProbing(t *testing.T) {
	var entries []table.Entry[uint32]
	for i := int32(0); i < 200; i++ {
		entries = append(entries, table.Entry[uint32]{Key: i, Value: uint32(i * 10)})
	}

	_, tbl := table.New[uint32](nil, entries...)

	for _, e := range entries {
		v := tbl.Lookup(e.Key)
		require.NotNil(t, v, "key %d", e.Key)
		assert.Equal(t, e.Value, *v)
	}
}
