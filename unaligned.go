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

package ppatch

import (
	"unsafe"

	"github.com/blightmarch/ppatch/internal/unsafe2/layout"
)

// Word is the set of integer types that can back an [Unaligned] view.
//
// The default word width used throughout this module is 32 bits.
type Word interface {
	~uint32 | ~uint64
}

// Unaligned is a view of a single N-bit word at an arbitrary, possibly
// misaligned, byte address inside some buffer. It never assumes the address
// it was constructed from satisfies W's natural alignment: every access
// copies the word's bytes one by one rather than dereferencing a *W.
//
// The zero value is not usable; construct values with [ToUnalignedSlice].
type Unaligned[W Word] struct {
	addr unsafe.Pointer
}

// Load reads the word at this view's address.
func (u Unaligned[W]) Load() W {
	var v W
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), layout.Size[W]()), unsafe.Slice((*byte)(u.addr), layout.Size[W]()))
	return v
}

// Store writes v at this view's address.
func (u Unaligned[W]) Store(v W) {
	copy(unsafe.Slice((*byte)(u.addr), layout.Size[W]()), unsafe.Slice((*byte)(unsafe.Pointer(&v)), layout.Size[W]()))
}

// Xor XORs v into the word at this view's address.
func (u Unaligned[W]) Xor(v W) {
	u.Store(u.Load() ^ v)
}

// And ANDs v into the word at this view's address.
func (u Unaligned[W]) And(v W) {
	u.Store(u.Load() & v)
}

// Or ORs v into the word at this view's address.
func (u Unaligned[W]) Or(v W) {
	u.Store(u.Load() | v)
}

// IsZero reports whether the word at this view's address is all-zero.
func (u Unaligned[W]) IsZero() bool {
	return u.Load() == 0
}

// ToUnalignedSlice reinterprets buf as a sequence of W-sized unaligned
// words. buf's length need not be a multiple of sizeof(W); any trailing
// partial word is dropped.
//
// The returned views alias buf: reads and writes through them observe and
// mutate buf in place. No row bytes are copied.
func ToUnalignedSlice[W Word](buf []byte) []Unaligned[W] {
	if len(buf) == 0 {
		return nil
	}

	size := layout.Size[W]()
	n := len(buf) / size
	out := make([]Unaligned[W], n)

	base := unsafe.Pointer(unsafe.SliceData(buf))
	for i := range out {
		out[i] = Unaligned[W]{addr: unsafe.Add(base, i*size)}
	}
	return out
}
