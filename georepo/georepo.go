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

// Package georepo serializes and loads the field-geometry repository: a
// single blob mapping a row-type name ("param_type") to the [ppatch.FieldBlock]
// sequence describing that row's layout. [Load] uses the blob's lookup table
// in place and decodes its block array once; looking up a row type copies
// nothing.
package georepo

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/bits"
	"unsafe"

	"github.com/blightmarch/ppatch"
	"github.com/blightmarch/ppatch/internal/table"
)

const (
	magic        uint32 = 0x67656f72 // "geor"
	blobVersion  uint32 = 1
	headerSize          = 24 // magic, version, wordSize, salt, blockCount, pad
)

// Errors returned by [Load].
var (
	ErrBadMagic        = errors.New("georepo: not a geometry blob")
	ErrVersionMismatch = errors.New("georepo: unsupported blob version")
	ErrWordSizeMismatch = errors.New("georepo: blob word size does not match host")
	ErrTruncated       = errors.New("georepo: blob is truncated")
	ErrMisaligned      = errors.New("georepo: blob buffer is not word-aligned")
)

type tableValue struct {
	Offset uint32
	Count  uint32
}

// Build serializes repo into a single contiguous blob, ready for [Load].
// Entries are looked up by key, a salted FNV-1a hash of the string, with
// the salt chosen here so that no two distinct keys in repo collide once
// reduced to an int32 table key.
func Build(repo map[string][]ppatch.FieldBlock[uint32]) []byte {
	keys := make([]string, 0, len(repo))
	for k := range repo {
		keys = append(keys, k)
	}

	salt, hashed := chooseSalt(keys)

	var flat []ppatch.FieldBlock[uint32]
	entries := make([]table.Entry[tableValue], 0, len(keys))
	for _, k := range keys {
		blocks := repo[k]
		entries = append(entries, table.Entry[tableValue]{
			Key: hashed[k],
			Value: tableValue{
				Offset: uint32(len(flat)),
				Count:  uint32(len(blocks)),
			},
		})
		flat = append(flat, blocks...)
	}

	out := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(out[0:4], magic)
	binary.LittleEndian.PutUint32(out[4:8], blobVersion)
	binary.LittleEndian.PutUint32(out[8:12], uint32(unsafe.Sizeof(uintptr(0))))
	binary.LittleEndian.PutUint32(out[12:16], salt)
	binary.LittleEndian.PutUint32(out[16:20], uint32(len(flat)))
	// out[20:24] reserved, left zero.

	out, _ = table.New(out, entries...)

	blocksOffset := len(out)
	for _, fb := range flat {
		var rec [8]byte
		binary.LittleEndian.PutUint16(rec[0:2], fb.FieldStart)
		binary.LittleEndian.PutUint16(rec[2:4], fb.Offset)
		binary.LittleEndian.PutUint32(rec[4:8], fb.Mask)
		out = append(out, rec[:]...)
	}

	tail := make([]byte, len(out)+4)
	copy(tail, out)
	binary.LittleEndian.PutUint32(tail[len(out):], uint32(blocksOffset))
	return tail
}

// chooseSalt searches for a salt value that produces pairwise-distinct
// int32 table keys across keys. With a geometry repository sized in the
// hundreds of row types, this converges in a handful of tries.
func chooseSalt(keys []string) (uint32, map[string]int32) {
	for salt := uint32(0); ; salt++ {
		seen := make(map[int32]string, len(keys))
		hashed := make(map[string]int32, len(keys))
		collided := false
		for _, k := range keys {
			h := saltedHash(salt, k)
			if other, ok := seen[h]; ok && other != k {
				collided = true
				break
			}
			seen[h] = k
			hashed[k] = h
		}
		if !collided {
			return salt, hashed
		}
	}
}

// saltedHash mixes salt into an FNV-1a hash of s and folds it down to a
// non-negative int32 other than math.MaxInt32, which internal/table reserves
// as its empty-slot marker (that value is remapped to 0).
func saltedHash(salt uint32, s string) int32 {
	h := fnv.New32a()
	var saltBytes [4]byte
	binary.LittleEndian.PutUint32(saltBytes[:], salt)
	h.Write(saltBytes[:])
	h.Write([]byte(s))
	v := h.Sum32()
	v = bits.RotateLeft32(v, 13) ^ v
	key := int32(v &^ (1 << 31))
	if key == math.MaxInt32 {
		key = 0
	}
	return key
}

// Repo is a loaded, immutable geometry repository. It borrows blob for its
// lookup table; Load decodes the block array into one slice, and Lookup
// copies nothing.
type Repo struct {
	blob   []byte
	salt   uint32
	table  table.Table[tableValue]
	blocks []ppatch.FieldBlock[uint32]
}

// Load reinterprets blob as a geometry repository built by [Build]. blob is
// borrowed for the lifetime of the returned [Repo].
func Load(blob []byte) (*Repo, error) {
	if len(blob) < headerSize+4 {
		return nil, ErrTruncated
	}
	if uintptr(unsafe.Pointer(unsafe.SliceData(blob)))%unsafe.Alignof(uint32(0)) != 0 {
		return nil, ErrMisaligned
	}
	if binary.LittleEndian.Uint32(blob[0:4]) != magic {
		return nil, ErrBadMagic
	}
	if binary.LittleEndian.Uint32(blob[4:8]) != blobVersion {
		return nil, ErrVersionMismatch
	}
	if binary.LittleEndian.Uint32(blob[8:12]) != uint32(unsafe.Sizeof(uintptr(0))) {
		return nil, ErrWordSizeMismatch
	}
	salt := binary.LittleEndian.Uint32(blob[12:16])
	blockCount := binary.LittleEndian.Uint32(blob[16:20])

	blocksOffset := binary.LittleEndian.Uint32(blob[len(blob)-4:])
	if int(blocksOffset)+int(blockCount)*8 > len(blob)-4 {
		return nil, ErrTruncated
	}

	blocks := make([]ppatch.FieldBlock[uint32], blockCount)
	for i := range blocks {
		rec := blob[int(blocksOffset)+i*8:]
		blocks[i] = ppatch.FieldBlock[uint32]{
			FieldStart: binary.LittleEndian.Uint16(rec[0:2]),
			Offset:     binary.LittleEndian.Uint16(rec[2:4]),
			Mask:       binary.LittleEndian.Uint32(rec[4:8]),
		}
	}

	t := table.Table[tableValue]{Data: &blob[headerSize]}

	return &Repo{blob: blob, salt: salt, table: t, blocks: blocks}, nil
}

// Lookup returns the field-geometry blocks for paramType, or nil if it is
// not present in the repository.
func (r *Repo) Lookup(paramType string) []ppatch.FieldBlock[uint32] {
	key := saltedHash(r.salt, paramType)
	v := r.table.Lookup(key)
	if v == nil {
		return nil
	}
	return r.blocks[v.Offset : v.Offset+v.Count]
}

// Bytes returns the underlying blob, suitable for writing to disk.
func (r *Repo) Bytes() []byte { return r.blob }

func (r *Repo) String() string {
	return fmt.Sprintf("georepo.Repo{blocks=%d}", len(r.blocks))
}
