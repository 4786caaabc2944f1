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

// ResCapHolderItem mirrors original_source/src/from/resource.rs's
// FD4ResCapHolderItem: a node in the host's resource-cap linked list.
type ResCapHolderItem struct {
	Base
	Name       HashString16
	Repository unsafe.Pointer
	NextItem   *ResCapHolderItem
	RefCount   uintptr
}

// ParamResCap is the resource-cap node for a loaded parameter file: the
// entry point for locating a parameter-file buffer in host memory.
type ParamResCap struct {
	Holder  ResCapHolderItem
	unk     uint32
	FD4File unsafe.Pointer
}

// FileBytes reinterprets the cap's backing file as a byte slice, for
// handing to [paramfile.FromBytes]. fileSize must be obtained from the
// host's own bookkeeping; this performs no bounds validation of its own.
func (p *ParamResCap) FileBytes(fileSize int) []byte {
	return unsafe.Slice((*byte)(p.FD4File), fileSize)
}
