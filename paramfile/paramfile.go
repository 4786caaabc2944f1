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

// Package paramfile parses the on-disk row-table format: a fixed header
// followed by an array of row descriptors, each locating one fixed-width row
// inside the same buffer (spec §4.4).
package paramfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"sort"
	"unsafe"
)

// Sentinel errors. Use [errors.Is] to test a [FromBytesError] against one of
// these; [FromBytesError.Unwrap] returns the matching sentinel.
var (
	ErrInsufficientAlignment = errors.New("paramfile: buffer is not aligned to the host word size")
	ErrBufferTooSmall        = errors.New("paramfile: buffer too small for header")
	ErrUnsupportedFile       = errors.New("paramfile: file endianness/offset-width does not match host")
	ErrOutOfBoundsOffset     = errors.New("paramfile: row data lies outside the buffer")
	ErrIntersectingData      = errors.New("paramfile: two rows' data regions overlap")
	ErrUnsortedRowDescs      = errors.New("paramfile: row descriptors are not strictly ascending by id")
)

// FromBytesError carries the byte offset at which a structural check failed,
// in addition to the sentinel identifying which check it was.
type FromBytesError struct {
	Sentinel error
	Offset   int
}

func (e *FromBytesError) Error() string {
	return fmt.Sprintf("%v (offset %d)", e.Sentinel, e.Offset)
}

func (e *FromBytesError) Unwrap() error { return e.Sentinel }

func fail(sentinel error, offset int) error {
	return &FromBytesError{Sentinel: sentinel, Offset: offset}
}

const (
	flagBigEndian       uint8 = 1 << 0
	flagLongOffsets     uint8 = 1 << 1
	flagShortDataPresent uint8 = 1 << 2

	shortHeaderSize = 48
	longHeaderSize  = 64

	shortDescSize = 12 // {id u32, dataOffset u32, nameOffset u32}
	longDescSize  = 24 // {id u32, _pad u32, dataOffset u64, nameOffset u64}

	shortParamTypeOff = 16
	shortParamTypeLen = 32
	longParamTypeOff  = 16
)

// Header is the parsed form of the 48- or 64-byte file header.
type Header struct {
	BigEndian        bool
	LongOffsets      bool
	ShortDataPresent bool
	RowCount         uint32
	DataEndOffset    uint64
	// ParamType is the row-type identifier: either read inline from the
	// header (short form) or dereferenced through the strings section at
	// ParamTypeOffset (long form).
	ParamType       string
	ParamTypeOffset uint64
	Size            int // total header size: 48 or 64
}

func (h Header) byteOrder() binary.ByteOrder {
	if h.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// descSize returns the size in bytes of one row descriptor for this header's
// offset width.
func (h Header) descSize() int {
	if h.LongOffsets {
		return longDescSize
	}
	return shortDescSize
}

// rowDesc is one parsed row descriptor.
type rowDesc struct {
	id         uint32
	dataOffset uint64
	nameOffset uint64
}

// ParamFile is a parsed view over a row table. It borrows buf; it never
// copies row data.
type ParamFile struct {
	buf     []byte
	header  Header
	descs   []rowDesc
	rowSize int
}

// parseHeader reads the header fields out of buf without validating
// anything beyond what is needed to know how many bytes it occupies.
func parseHeader(buf []byte) (Header, error) {
	if len(buf) < 1 {
		return Header{}, fail(ErrBufferTooSmall, 0)
	}

	flags := buf[0]
	h := Header{
		BigEndian:        flags&flagBigEndian != 0,
		LongOffsets:      flags&flagLongOffsets != 0,
		ShortDataPresent: flags&flagShortDataPresent != 0,
	}
	if h.LongOffsets {
		h.Size = longHeaderSize
	} else {
		h.Size = shortHeaderSize
	}

	if len(buf) < h.Size {
		return Header{}, fail(ErrBufferTooSmall, len(buf))
	}

	order := h.byteOrder()
	h.RowCount = order.Uint32(buf[4:8])
	if h.LongOffsets {
		h.DataEndOffset = order.Uint64(buf[8:16])
		h.ParamTypeOffset = order.Uint64(buf[longParamTypeOff : longParamTypeOff+8])
	} else {
		h.DataEndOffset = uint64(order.Uint32(buf[8:12]))
		raw := buf[shortParamTypeOff : shortParamTypeOff+shortParamTypeLen]
		end := 0
		for end < len(raw) && raw[end] != 0 {
			end++
		}
		h.ParamType = string(raw[:end])
	}

	return h, nil
}

func parseDescs(buf []byte, h Header) []rowDesc {
	order := h.byteOrder()
	descSize := h.descSize()
	descs := make([]rowDesc, h.RowCount)
	for i := range descs {
		off := h.Size + i*descSize
		rec := buf[off : off+descSize]
		d := rowDesc{id: order.Uint32(rec[0:4])}
		if h.LongOffsets {
			d.dataOffset = order.Uint64(rec[8:16])
			d.nameOffset = order.Uint64(rec[16:24])
		} else {
			d.dataOffset = uint64(order.Uint32(rec[4:8]))
			d.nameOffset = uint64(order.Uint32(rec[8:12]))
		}
		descs[i] = d
	}
	return descs
}

func computeRowSize(descs []rowDesc, dataEnd uint64) int {
	switch len(descs) {
	case 0:
		return 0
	case 1:
		return int(dataEnd - descs[0].dataOffset)
	default:
		return int(descs[1].dataOffset - descs[0].dataOffset)
	}
}

// FromBytesUnchecked reinterprets buf in place without validating alignment,
// endianness, bitness, or bounds. The caller must already know these hold;
// violating them is contract misuse (spec §7.4) and may panic or return
// garbage rows.
func FromBytesUnchecked(buf []byte) *ParamFile {
	h, err := parseHeader(buf)
	if err != nil {
		panic(err)
	}
	descs := parseDescs(buf, h)

	if h.LongOffsets && h.ParamTypeOffset != 0 {
		end := h.ParamTypeOffset
		for end < uint64(len(buf)) && buf[end] != 0 {
			end++
		}
		h.ParamType = string(buf[h.ParamTypeOffset:end])
	}

	return &ParamFile{
		buf:     buf,
		header:  h,
		descs:   descs,
		rowSize: computeRowSize(descs, h.DataEndOffset),
	}
}

// hostIsLittleEndian and hostPointerIsLong describe the zero-copy
// reinterpretation target this build supports: 64-bit, little-endian hosts.
// FromBytes rejects any file whose header claims a different layout, since
// accepting it would require a byte-order or width conversion pass rather
// than a true zero-copy reinterpretation.
const (
	hostIsLittleEndian = true
	hostPointerIsLong   = unsafe.Sizeof(uintptr(0)) == 8
)

// FromBytes parses buf, fully validating the structural invariants of
// spec §4.4. The buffer is left untouched if any check fails.
func FromBytes(buf []byte) (*ParamFile, error) {
	ptr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	if buf != nil && ptr%unsafe.Alignof(uint64(0)) != 0 {
		return nil, fail(ErrInsufficientAlignment, 0)
	}

	h, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}

	if h.BigEndian == hostIsLittleEndian || h.LongOffsets != hostPointerIsLong {
		return nil, fail(ErrUnsupportedFile, 0)
	}

	descSize := h.descSize()
	descEnd := h.Size + int(h.RowCount)*descSize
	if len(buf) < descEnd {
		return nil, fail(ErrBufferTooSmall, descEnd)
	}

	descs := parseDescs(buf, h)

	for i := 1; i < len(descs); i++ {
		if descs[i].id <= descs[i-1].id {
			return nil, fail(ErrUnsortedRowDescs, h.Size+i*descSize)
		}
	}

	rowSize := computeRowSize(descs, h.DataEndOffset)
	for i, d := range descs {
		if d.dataOffset > h.DataEndOffset || uint64(rowSize) > h.DataEndOffset-d.dataOffset {
			return nil, fail(ErrOutOfBoundsOffset, h.Size+i*descSize)
		}
		if d.dataOffset+uint64(rowSize) > uint64(len(buf)) {
			return nil, fail(ErrOutOfBoundsOffset, h.Size+i*descSize)
		}
	}

	sorted := append([]rowDesc(nil), descs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].dataOffset < sorted[j].dataOffset })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].dataOffset < sorted[i-1].dataOffset+uint64(rowSize) {
			return nil, fail(ErrIntersectingData, int(sorted[i].dataOffset))
		}
	}

	if h.LongOffsets && h.ParamTypeOffset != 0 {
		if h.ParamTypeOffset >= uint64(len(buf)) {
			return nil, fail(ErrOutOfBoundsOffset, int(h.ParamTypeOffset))
		}
		end := h.ParamTypeOffset
		for end < uint64(len(buf)) && buf[end] != 0 {
			end++
		}
		h.ParamType = string(buf[h.ParamTypeOffset:end])
	}

	return &ParamFile{buf: buf, header: h, descs: descs, rowSize: rowSize}, nil
}

// Header returns the parsed file header.
func (f *ParamFile) Header() Header { return f.header }

// RowSize returns the uniform row width in bytes.
func (f *ParamFile) RowSize() int { return f.rowSize }

// Len returns the number of rows.
func (f *ParamFile) Len() int { return len(f.descs) }

func (f *ParamFile) rowBytes(i int) []byte {
	off := f.descs[i].dataOffset
	return f.buf[off : off+uint64(f.rowSize)]
}

// Get returns the i'th row as an immutable slice.
func (f *ParamFile) Get(i int) ([]byte, bool) {
	if i < 0 || i >= len(f.descs) {
		return nil, false
	}
	return f.rowBytes(i), true
}

// GetMut returns the i'th row as a mutable slice.
func (f *ParamFile) GetMut(i int) ([]byte, bool) {
	return f.Get(i)
}

// IndexOf returns the index of the row with the given id, via binary
// search over the (ascending, by construction) descriptor array.
func (f *ParamFile) IndexOf(id uint32) (int, bool) {
	i := sort.Search(len(f.descs), func(i int) bool { return f.descs[i].id >= id })
	if i < len(f.descs) && f.descs[i].id == id {
		return i, true
	}
	return 0, false
}

// ByID returns the row with the given id, if present.
func (f *ParamFile) ByID(id uint32) ([]byte, bool) {
	i, ok := f.IndexOf(id)
	if !ok {
		return nil, false
	}
	return f.Get(i)
}

// ByIDMut returns the row with the given id as a mutable slice, if present.
func (f *ParamFile) ByIDMut(id uint32) ([]byte, bool) {
	return f.ByID(id)
}

// ID returns the stable row id of the i'th row.
func (f *ParamFile) ID(i int) uint32 { return f.descs[i].id }

// Rows iterates every row in descriptor order.
func (f *ParamFile) Rows() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for i := range f.descs {
			if !yield(f.rowBytes(i)) {
				return
			}
		}
	}
}

// RowsMut iterates every row in descriptor order, yielding mutable slices.
func (f *ParamFile) RowsMut() iter.Seq[[]byte] {
	return f.Rows()
}
