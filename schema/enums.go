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

package schema

import (
	"encoding/json"
	"fmt"
)

// ProjectEnums is the parsed form of Enums.json: the catalog of named enum
// types a field's Meta.Enum/ProjectEnum attribute may reference.
type ProjectEnums struct {
	List []ProjectEnum `json:"List"`
}

// ProjectEnum is one named enum type and its option list.
type ProjectEnum struct {
	DisplayName string       `json:"DisplayName"`
	Name        string       `json:"Name"`
	Description string       `json:"Description"`
	Options     []EnumOption `json:"Options"`
}

// EnumOption is one value/label pair within a [ProjectEnum].
type EnumOption struct {
	ID          int64  `json:"ID"`
	Name        string `json:"Name"`
	Description string `json:"Description"`
}

// ByName indexes e's enum list by name for O(1) lookup from a field's
// Enum/ProjectEnum attribute.
func (e *ProjectEnums) ByName() map[string]*ProjectEnum {
	out := make(map[string]*ProjectEnum, len(e.List))
	for i := range e.List {
		out[e.List[i].Name] = &e.List[i]
	}
	return out
}

// ParseProjectEnums decodes an Enums.json document.
func ParseProjectEnums(data []byte) (*ProjectEnums, error) {
	var enums ProjectEnums
	if err := json.Unmarshal(data, &enums); err != nil {
		return nil, fmt.Errorf("schema: parsing Enums.json: %w", err)
	}
	return &enums, nil
}
