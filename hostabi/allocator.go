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

import (
	"syscall"
	"unsafe"
)

// Ordinals match original_source/src/from/allocator.rs's DLAllocator vtable.
const (
	ordAllocatorDestruct      = 0
	ordAllocatorID            = 1
	ordAllocatorHeapFlags     = 3
	ordAllocatorHeapCapacity  = 4
	ordAllocatorHeapSize      = 5
	ordAllocatorBlockSize     = 8
	ordAllocatorAllocate      = 9
	ordAllocatorAllocateAlign = 10
	ordAllocatorDeallocate    = 13
)

// Allocator is a thin proxy over a host DLAllocator instance.
type Allocator struct{ Base }

// NewAllocator wraps a raw DLAllocator instance pointer. ptr must already
// point at a live, correctly laid-out host object; this performs no
// validation (spec §5 Non-goals).
func NewAllocator(ptr unsafe.Pointer) *Allocator {
	return (*Allocator)(ptr)
}

// ID returns the allocator's numeric identifier.
func (a *Allocator) ID() int32 {
	r, _, _ := syscall.SyscallN(uintptr(entry(a, ordAllocatorID)), uintptr(unsafe.Pointer(a)))
	return int32(r)
}

// HeapCapacity returns the allocator's total heap capacity in bytes.
func (a *Allocator) HeapCapacity() uintptr {
	r, _, _ := syscall.SyscallN(uintptr(entry(a, ordAllocatorHeapCapacity)), uintptr(unsafe.Pointer(a)))
	return r
}

// HeapSize returns bytes currently allocated from the heap.
func (a *Allocator) HeapSize() uintptr {
	r, _, _ := syscall.SyscallN(uintptr(entry(a, ordAllocatorHeapSize)), uintptr(unsafe.Pointer(a)))
	return r
}

// Allocate requests cb bytes from the host allocator.
func (a *Allocator) Allocate(cb uintptr) unsafe.Pointer {
	r, _, _ := syscall.SyscallN(uintptr(entry(a, ordAllocatorAllocate)), uintptr(unsafe.Pointer(a)), cb)
	return unsafe.Pointer(r)
}

// AllocateAligned requests cb bytes aligned to align from the host allocator.
func (a *Allocator) AllocateAligned(cb, align uintptr) unsafe.Pointer {
	r, _, _ := syscall.SyscallN(uintptr(entry(a, ordAllocatorAllocateAlign)),
		uintptr(unsafe.Pointer(a)), cb, align)
	return unsafe.Pointer(r)
}

// Deallocate releases memory previously returned by Allocate/AllocateAligned.
func (a *Allocator) Deallocate(ptr unsafe.Pointer) {
	syscall.SyscallN(uintptr(entry(a, ordAllocatorDeallocate)), uintptr(unsafe.Pointer(a)), uintptr(ptr))
}

// BlockSize returns the usable size of the block starting at ptr.
func (a *Allocator) BlockSize(ptr unsafe.Pointer) uintptr {
	r, _, _ := syscall.SyscallN(uintptr(entry(a, ordAllocatorBlockSize)), uintptr(unsafe.Pointer(a)), uintptr(ptr))
	return r
}
