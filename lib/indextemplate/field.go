// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package indextemplate

import (
	"fmt"
	"slices"

	"github.com/bureau-foundation/clustermeta/lib/codec"
)

// Field identifies one of the six fields of an index template. The
// numeric values fix the field order of the binary encodings.
type Field uint8

const (
	FieldIndexPatterns Field = iota
	FieldTemplate
	FieldComposedOf
	FieldPriority
	FieldVersion
	FieldMetadata
)

// fieldCount is the number of fields this encoder version knows.
const fieldCount = 6

var allFields = [fieldCount]Field{
	FieldIndexPatterns,
	FieldTemplate,
	FieldComposedOf,
	FieldPriority,
	FieldVersion,
	FieldMetadata,
}

// AllFields returns every field in encoding order.
func AllFields() []Field {
	return slices.Clone(allFields[:])
}

// String returns the structured document name of the field.
func (field Field) String() string {
	switch field {
	case FieldIndexPatterns:
		return "index_patterns"
	case FieldTemplate:
		return "template"
	case FieldComposedOf:
		return "composed_of"
	case FieldPriority:
		return "priority"
	case FieldVersion:
		return "version"
	case FieldMetadata:
		return "_meta"
	default:
		return fmt.Sprintf("field(%d)", uint8(field))
	}
}

// equal compares this field of two field sets.
func (field Field) equal(left, right *Fields) bool {
	switch field {
	case FieldIndexPatterns:
		return equalStrings(left.IndexPatterns, right.IndexPatterns)
	case FieldTemplate:
		return left.Template.Equal(right.Template)
	case FieldComposedOf:
		return equalStrings(left.ComposedOf, right.ComposedOf)
	case FieldPriority:
		return equalPointers(left.Priority, right.Priority)
	case FieldVersion:
		return equalPointers(left.Version, right.Version)
	case FieldMetadata:
		return codec.EqualMaps(left.Metadata, right.Metadata)
	default:
		panic(fmt.Sprintf("indextemplate: unknown field %d", field))
	}
}

// take sets this field of destination to the value held by source.
// Values are shared, not copied.
func (field Field) take(destination, source *Fields) {
	switch field {
	case FieldIndexPatterns:
		destination.IndexPatterns = source.IndexPatterns
	case FieldTemplate:
		destination.Template = source.Template
	case FieldComposedOf:
		destination.ComposedOf = source.ComposedOf
	case FieldPriority:
		destination.Priority = source.Priority
	case FieldVersion:
		destination.Version = source.Version
	case FieldMetadata:
		destination.Metadata = source.Metadata
	default:
		panic(fmt.Sprintf("indextemplate: unknown field %d", field))
	}
}
