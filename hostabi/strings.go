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

//go:build windows

package hostabi

import "unsafe"

// inlineStringCap is the small-string-optimization threshold used by the
// host's FD4BasicHashString<C>, mirrored from
// original_source/src/from/string.rs's StringStorage<C, N>.
const inlineStringCap = 8

// HashString16 is a view over a host FD4BasicHashString<u16>: a union of an
// inline character buffer and a heap pointer, discriminated by length.
type HashString16 struct {
	storage [inlineStringCap]uint16
	length  uint32
	_       uint32 // alignment padding
	hash    uint32
}

// Chars returns the string's UTF-16 code units, reading from the inline
// buffer or following the heap pointer as needed.
func (s *HashString16) Chars() []uint16 {
	if int(s.length) < inlineStringCap {
		return s.storage[:s.length]
	}
	ptr := *(*unsafe.Pointer)(unsafe.Pointer(&s.storage[0]))
	return unsafe.Slice((*uint16)(ptr), s.length)
}

// String decodes the host string to a Go string (naive UTF-16-to-UTF-8;
// the host's encoding is assumed to be well-formed UTF-16 per spec §6's
// Unicode flag).
func (s *HashString16) String() string {
	units := s.Chars()
	out := make([]rune, 0, len(units))
	for i := 0; i < len(units); i++ {
		r := rune(units[i])
		if r >= 0xD800 && r < 0xDC00 && i+1 < len(units) {
			lo := rune(units[i+1])
			if lo >= 0xDC00 && lo < 0xE000 {
				r = ((r - 0xD800) << 10) + (lo - 0xDC00) + 0x10000
				i++
			}
		}
		out = append(out, r)
	}
	return string(out)
}
