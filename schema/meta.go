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
	"encoding/xml"
	"fmt"
)

// ParamMeta is the display-only sidecar to a [Paramdef]: it carries no
// layout information, only presentation hints that a future consumer may
// show a user (spec §1 Non-goals: the engine itself does not interpret
// field semantics).
type ParamMeta struct {
	XMLName    xml.Name      `xml:"PARAMMETA"`
	XmlVersion uint32        `xml:"XmlVersion"`
	Self       MetaSelf      `xml:"Self"`
	Enums      []MetaEnum    `xml:"Enums>Enum"`
	Fields     []MetaField   `xml:"Fields>Field"`
}

// MetaSelf carries the table-wide wiki annotation.
type MetaSelf struct {
	Wiki string `xml:"Wiki,attr"`
}

// MetaEnum names an enum catalog entry referenced from a field.
type MetaEnum struct {
	Name string `xml:"Name,attr"`
}

// MetaField is one field's display metadata.
type MetaField struct {
	Name        string `xml:"Name,attr"`
	AltName     string `xml:"AltName,attr"`
	Wiki        string `xml:"Wiki,attr"`
	Enum        string `xml:"Enum,attr"`
	ProjectEnum string `xml:"ProjectEnum,attr"`
	IsBool      bool   `xml:"IsBool,attr"`
}

// DefWithMeta pairs one field's layout definition with its optional display
// metadata, mirroring paramdex::DefWithMeta in original_source.
type DefWithMeta struct {
	Def  *DefField
	Meta *MetaField
}

// ParseParamMeta decodes a PARAMMETA XML document.
func ParseParamMeta(data []byte) (*ParamMeta, error) {
	var meta ParamMeta
	if err := xml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("schema: parsing parammeta: %w", err)
	}
	return &meta, nil
}

// Merge pairs def's fields with meta's fields by field name, in def's
// declaration order. A field absent from meta yields a nil Meta.
func Merge(def *Paramdef, meta *ParamMeta) []DefWithMeta {
	byName := make(map[string]*MetaField)
	if meta != nil {
		for i := range meta.Fields {
			byName[meta.Fields[i].Name] = &meta.Fields[i]
		}
	}

	out := make([]DefWithMeta, len(def.Fields))
	for i := range def.Fields {
		out[i] = DefWithMeta{
			Def:  &def.Fields[i],
			Meta: byName[def.Fields[i].Def.Name],
		}
	}
	return out
}
