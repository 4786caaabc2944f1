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

// RowPatchId identifies a patch record within one patcher instance. It is
// meaningless outside the patcher that produced it: passing an id to a
// different instance, or restoring the same id twice, is contract misuse
// (spec §7.4). Release builds do not detect it; debug-build assertions catch
// only some cases.
type RowPatchId int

// RowPatcher is the contract shared by the sparse-array and linked-list
// patcher variants (spec §4.7). Both are bound to one geometry slice and one
// row width for their whole lifetime; neither blocks nor suspends.
type RowPatcher[W Word] interface {
	// CreatePatch records the bitwise difference between before and after,
	// which must both have length equal to the patcher's row width in
	// words. It never writes to live memory. ok is false only on internal
	// capacity exhaustion (spec §7.1).
	CreatePatch(before, after []Unaligned[W]) (id RowPatchId, ok bool)

	// RestorePatch removes the patch identified by id and updates live so
	// that its cumulative visible effect equals the patch stack with id
	// removed. id is invalidated by this call.
	RestorePatch(id RowPatchId, live []Unaligned[W])
}
