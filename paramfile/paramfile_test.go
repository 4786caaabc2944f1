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

package paramfile_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blightmarch/ppatch/paramfile"
)

// buildLongFile assembles a minimal long-header (64-bit offsets, as on the
// 64-bit hosts FromBytes accepts) little-endian file with the given rows
// (each rowSize bytes) at the given data offsets; callers place the rows
// at or after the end of the descriptor array (64 + 24*len(ids)).
func buildLongFile(t *testing.T, ids []uint32, rowSize int, dataOffsets []uint32) []byte {
	t.Helper()
	const headerSize = 64
	const descSize = 24

	descEnd := headerSize + len(ids)*descSize
	dataEnd := uint32(descEnd)
	for _, off := range dataOffsets {
		if end := off + uint32(rowSize); end > dataEnd {
			dataEnd = end
		}
	}

	buf := make([]byte, dataEnd)
	buf[0] = 1 << 1 // flags: little-endian, long offsets
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(ids)))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(dataEnd))

	for i, id := range ids {
		rec := buf[headerSize+i*descSize:]
		binary.LittleEndian.PutUint32(rec[0:4], id)
		binary.LittleEndian.PutUint64(rec[8:16], uint64(dataOffsets[i]))
	}

	for i, off := range dataOffsets {
		for b := 0; b < rowSize; b++ {
			buf[int(off)+b] = byte(ids[i])
		}
	}

	return buf
}

func TestFromBytes_RoundTripsRows(t *testing.T) {
	buf := buildLongFile(t, []uint32{1, 2, 3}, 4, []uint32{136, 140, 144})

	pf, err := paramfile.FromBytes(buf)
	require.NoError(t, err)
	require.Equal(t, 3, pf.Len())
	require.Equal(t, 4, pf.RowSize())

	row, ok := pf.ByID(2)
	require.True(t, ok)
	require.Equal(t, []byte{2, 2, 2, 2}, row)

	var seen []uint32
	for row := range pf.Rows() {
		seen = append(seen, uint32(row[0]))
	}
	require.Equal(t, []uint32{1, 2, 3}, seen)
}

func TestFromBytes_UnsortedDescriptorsRejected(t *testing.T) {
	buf := buildLongFile(t, []uint32{5, 5}, 4, []uint32{112, 116})

	_, err := paramfile.FromBytes(buf)
	require.Error(t, err)
	require.True(t, errors.Is(err, paramfile.ErrUnsortedRowDescs))
}

func TestFromBytes_IntersectingDataRejected(t *testing.T) {
	// row_size is derived from the gap between the first two data offsets
	// (4 bytes here); the third descriptor's offset then overlaps the
	// second row's span.
	buf := buildLongFile(t, []uint32{1, 2, 3}, 4, []uint32{136, 140, 142})

	_, err := paramfile.FromBytes(buf)
	require.Error(t, err)
	require.True(t, errors.Is(err, paramfile.ErrIntersectingData))
}

func TestFromBytes_BufferTooSmall(t *testing.T) {
	_, err := paramfile.FromBytes(make([]byte, 4))
	require.Error(t, err)
	require.True(t, errors.Is(err, paramfile.ErrBufferTooSmall))
}

func TestFromBytes_IndexOfMatchesDescriptorOrder(t *testing.T) {
	buf := buildLongFile(t, []uint32{10, 20, 30}, 4, []uint32{136, 140, 144})

	pf, err := paramfile.FromBytes(buf)
	require.NoError(t, err)

	idx, ok := pf.IndexOf(20)
	require.True(t, ok)
	require.Equal(t, 1, idx)

	_, ok = pf.IndexOf(99)
	require.False(t, ok)
}
