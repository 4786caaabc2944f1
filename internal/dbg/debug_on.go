// Copyright 2025 Buf Technologies, Inc.
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

//go:build debug

package dbg

import "github.com/blightmarch/ppatch/internal/debug"

// Enabled mirrors [debug.Enabled], so that callers in non-debug-aware
// packages do not need to import internal/debug directly.
const Enabled = debug.Enabled

// Log forwards to [debug.Log].
func Log(context []any, operation, format string, args ...any) {
	debug.Log(context, operation, format, args...)
}
