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

// Package ppatch implements the row patch engine: a data structure that
// records, stacks, and surgically reverts changes to fixed-size binary
// records ("rows") in live memory.
//
// A row's layout is described by a [Geometry]: an ordered sequence of
// [FieldBlock] entries produced at build time by the schema-to-geometry
// compiler (see package schema) and looked up by row-type name through
// package georepo. Two interchangeable patcher implementations satisfy the
// [RowPatcher] contract: [SparseArrayPatcher], tuned for recent-patch
// revert, and [LinkedListPatcher], which bounds restore cost independent of
// stack depth. Both observe the same visible end state for any sequence of
// creates and restores.
//
// All patching operates on rows viewed through [Unaligned], so a
// misaligned row buffer is never a correctness hazard.
package ppatch
