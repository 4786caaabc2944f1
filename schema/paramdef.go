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

// Package schema parses row-type definitions (PARAMDEF XML), their optional
// display metadata (PARAMMETA XML) and an enum catalog (Enums.json), then
// lowers them to [ppatch.FieldBlock] geometry.
package schema

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
)

// Paramdef is one row type's field layout, as declared in a PARAMDEF XML
// document.
type Paramdef struct {
	XMLName       xml.Name   `xml:"PARAMDEF"`
	ParamType     string     `xml:"ParamType"`
	DataVersion   uint32     `xml:"DataVersion"`
	BigEndian     bool       `xml:"BigEndian"`
	Unicode       bool       `xml:"Unicode"`
	FormatVersion uint32     `xml:"FormatVersion"`
	Fields        []DefField `xml:"Fields>Field"`
}

// DefField is one field declaration plus the display-only attributes that
// accompany it in the source XML.
type DefField struct {
	Def          DefType  `xml:"Def,attr"`
	DisplayName  string   `xml:"DisplayName"`
	EnumName     string   `xml:"Enum"`
	Description  string   `xml:"Description"`
	EditFlags    string   `xml:"EditFlags"`
	Minimum      *float64 `xml:"Minimum"`
	Maximum      *float64 `xml:"Maximum"`
	Increment    *float32 `xml:"Increment"`
	SortID       *int32   `xml:"SortID"`
	FirstVersion *uint64  `xml:"FirstVersion,attr"`
	RemovedVersion *uint64 `xml:"RemovedVersion,attr"`

	// BitOffset is filled in by ComputeFieldOffsets; nil means the field was
	// disabled for the version the offsets were computed for.
	BitOffset *int `xml:"-"`
}

// EnabledForVersion reports whether this field exists in the row layout at
// the given schema version.
func (f DefField) EnabledForVersion(version uint64) bool {
	if f.FirstVersion != nil && *f.FirstVersion > version {
		return false
	}
	if f.RemovedVersion != nil && *f.RemovedVersion <= version {
		return false
	}
	return true
}

func (f DefField) alignmentBits() int { return f.Def.BaseType.sizeBytes() * 8 }
func (f DefField) sizeBits() int      { return f.Def.sizeBits() }

// DefBaseType is one of the primitive field types PARAMDEF supports.
type DefBaseType int

const (
	Dummy8 DefBaseType = iota
	S8
	U8
	S16
	U16
	S32
	U32
	F32
	Fixstr
	FixstrW
)

var baseTypeNames = map[string]DefBaseType{
	"dummy8":  Dummy8,
	"s8":      S8,
	"u8":      U8,
	"s16":     S16,
	"u16":     U16,
	"s32":     S32,
	"u32":     U32,
	"f32":     F32,
	"fixstr":  Fixstr,
	"fixstrW": FixstrW,
}

func parseBaseType(s string) (DefBaseType, error) {
	t, ok := baseTypeNames[s]
	if !ok {
		return 0, fmt.Errorf("schema: unrecognized field base type %q", s)
	}
	return t, nil
}

func (t DefBaseType) sizeBytes() int {
	switch t {
	case Dummy8, S8, U8, Fixstr:
		return 1
	case S16, U16, FixstrW:
		return 2
	case S32, U32, F32:
		return 4
	default:
		return 1
	}
}

// DefTypeModifier distinguishes a scalar field from a fixed-length array or
// a sub-word bitfield.
type DefTypeModifier struct {
	Kind        DefTypeModifierKind
	ArrayLen    int
	BitfieldLen int
}

type DefTypeModifierKind int

const (
	ModifierNone DefTypeModifierKind = iota
	ModifierArray
	ModifierBitfield
)

// DefType is a parsed field-def mini-grammar: `base_type name([size]|:width)(= default)?`.
type DefType struct {
	Name     string
	BaseType DefBaseType
	Modifier DefTypeModifier
}

func (t DefType) sizeBytes() int {
	switch t.Modifier.Kind {
	case ModifierArray:
		return t.Modifier.ArrayLen * t.BaseType.sizeBytes()
	default:
		return t.BaseType.sizeBytes()
	}
}

func (t DefType) sizeBits() int {
	switch t.Modifier.Kind {
	case ModifierArray:
		return 8 * t.sizeBytes()
	case ModifierBitfield:
		return t.Modifier.BitfieldLen
	default:
		return 8 * t.BaseType.sizeBytes()
	}
}

// fieldDefPattern mirrors original_source/paramdex/src/paramdef.rs's
// FIELD_PARSE regex: `base_type name([size]|:width)(= default)?`.
var fieldDefPattern = regexp.MustCompile(
	`^(?P<base_type>[\w\d_]+)\s+(?P<name>[\w\d_]+)\s*((\[(?P<array_size>[\w\d]+)\])|(:\s*(?P<bitfield_size>[\w\d]+)))?\s*(=.*)?$`,
)

// ParseDefType parses a single `<Def>` attribute string, e.g. "u32 someField[4]"
// or "s16 flags:3".
func ParseDefType(s string) (DefType, error) {
	m := fieldDefPattern.FindStringSubmatch(s)
	if m == nil {
		return DefType{}, fmt.Errorf("schema: %q is not a valid field definition", s)
	}
	names := fieldDefPattern.SubexpNames()
	group := func(name string) string {
		for i, n := range names {
			if n == name {
				return m[i]
			}
		}
		return ""
	}

	baseType, err := parseBaseType(group("base_type"))
	if err != nil {
		return DefType{}, err
	}

	dt := DefType{Name: group("name"), BaseType: baseType}
	switch {
	case group("array_size") != "":
		n, err := strconv.Atoi(group("array_size"))
		if err != nil {
			return DefType{}, fmt.Errorf("schema: invalid array size in %q: %w", s, err)
		}
		dt.Modifier = DefTypeModifier{Kind: ModifierArray, ArrayLen: n}
	case group("bitfield_size") != "":
		n, err := strconv.Atoi(group("bitfield_size"))
		if err != nil {
			return DefType{}, fmt.Errorf("schema: invalid bitfield width in %q: %w", s, err)
		}
		dt.Modifier = DefTypeModifier{Kind: ModifierBitfield, BitfieldLen: n}
	default:
		dt.Modifier = DefTypeModifier{Kind: ModifierNone}
	}
	return dt, nil
}

// UnmarshalXMLAttr implements [xml.UnmarshalerAttr], so a `Def="..."`
// attribute is parsed straight into a [DefType] during document decode.
func (t *DefType) UnmarshalXMLAttr(attr xml.Attr) error {
	parsed, err := ParseDefType(attr.Value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseParamdef decodes a PARAMDEF XML document.
func ParseParamdef(data []byte) (*Paramdef, error) {
	var def Paramdef
	if err := xml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("schema: parsing paramdef: %w", err)
	}
	return &def, nil
}
