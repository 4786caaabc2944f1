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

// Package hostabi provides thin call-site thunks over the fixed-ordinal
// virtual-method tables of five host objects this module never owns: an
// allocator, a string, a vector, a resource-cap holder, and the regulation
// manager (spec §6). They exist only so a caller embedding this module
// inside the host process can locate the row bytes a [ppatch.RowPatcher]
// needs; they are not part of the patch engine and perform no validation
// of the pointers they are handed (spec §5 Non-goals).
//
// These thunks assume the host's native (Windows x86-64 "fastcall", the
// platform's only calling convention) ABI and are only meaningful when
// this module is built into a process already injected into that host;
// they cannot be exercised by an ordinary test (see DESIGN.md).
package hostabi

import "unsafe"

// VTable is a pointer to a contiguous array of function pointers, as laid
// out by the host's compiler at the start of every polymorphic object.
type VTable = unsafe.Pointer

// Object is any host type whose first machine word is a [VTable] pointer.
// Implementations embed a [Base] to satisfy this trivially.
type Object interface {
	vmt() VTable
}

// Base is embedded at offset zero of any generated proxy type to recover
// its vtable pointer the way the host compiler laid it out.
type Base struct {
	VTablePtr VTable
}

func (b *Base) vmt() VTable { return b.VTablePtr }

// entry reads the idx'th function pointer out of obj's vtable.
func entry(obj Object, idx int) unsafe.Pointer {
	base := uintptr(obj.vmt())
	slot := (*unsafe.Pointer)(unsafe.Pointer(base + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
	return *slot
}
