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

// RegulationManager mirrors original_source/src/from/regulation_man.rs's
// CSRegulationManager: the host singleton that owns every loaded param
// resource cap. It is the root a consumer walks to find every row table
// currently resident in the host process.
type RegulationManager struct {
	Base
	RegulationStepTask unsafe.Pointer
	ParamResCaps       Vector[ParamResCap]
}

// RegulationManagerAt reinterprets the fixed host address of the
// CSRegulationManager singleton. The caller supplies addr, since this
// module has no way to locate the host's global instance on its own
// (spec §6: host interop is out-of-core, this is a collaborator only).
func RegulationManagerAt(addr uintptr) *RegulationManager {
	return (*RegulationManager)(unsafe.Pointer(addr))
}

// ParamCaps iterates every loaded parameter resource cap.
func (m *RegulationManager) ParamCaps() func(yield func(int, *ParamResCap) bool) {
	return m.ParamResCaps.All()
}
