// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package indextemplate

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"unicode/utf8"

	"github.com/bureau-foundation/clustermeta/lib/codec"
	"github.com/bureau-foundation/clustermeta/lib/compressed"
)

// Fields holds the six fields of an index template. It is the input
// to [New] and the output of [IndexTemplate.Fields]. A nil pointer,
// slice, or map means the field is absent; an empty non-nil slice or
// map is present and empty.
type Fields struct {
	// IndexPatterns are the index name patterns the template applies
	// to, in match priority order. Required and non-empty.
	IndexPatterns []string

	// Template carries settings, mappings, and aliases as one unit.
	Template *Template

	// ComposedOf names the component templates merged into this one,
	// in merge precedence order. Duplicates are kept.
	ComposedOf []string

	// Priority breaks ties between templates matching the same index.
	// Absent means lowest priority.
	Priority *uint64

	// Version is a user-assigned tag with no concurrency semantics.
	Version *uint64

	// Metadata is arbitrary structured data preserved verbatim.
	Metadata map[string]any
}

// Template is the settings/mappings/aliases unit of an index template.
// Each member may be absent independently.
type Template struct {
	// Settings are flattened index settings ("index.number_of_shards").
	Settings map[string]string

	// Mappings is the compressed mapping document.
	Mappings *compressed.Document

	// Aliases maps alias names to their descriptors.
	Aliases map[string]AliasMetadata
}

// AliasMetadata describes one alias created for matching indices.
type AliasMetadata struct {
	Filter        *compressed.Document
	IndexRouting  *string
	SearchRouting *string
	IsHidden      *bool
	IsWriteIndex  *bool
}

// IndexTemplate is an immutable composable index template. Construct
// one with [New], [Parse], [Read], or [Apply]. Accessors return shared
// internal values which callers must not modify; use [IndexTemplate.Fields]
// to obtain an independent copy for building a modified template.
type IndexTemplate struct {
	fields Fields
}

// New validates fields and returns a template holding a deep copy of
// them. Metadata values are normalized (see lib/codec). It fails with
// *ValidationError when IndexPatterns is empty or any string is not
// valid UTF-8, and *FormatError when metadata holds an unsupported
// value.
func New(fields Fields) (*IndexTemplate, error) {
	metadata, err := codec.NormalizeMap(fields.Metadata)
	if err != nil {
		return nil, metadataError(err)
	}
	copied := Fields{
		IndexPatterns: slices.Clone(fields.IndexPatterns),
		Template:      fields.Template.clone(),
		ComposedOf:    slices.Clone(fields.ComposedOf),
		Priority:      clonePointer(fields.Priority),
		Version:       clonePointer(fields.Version),
		Metadata:      metadata,
	}
	return newShared(copied)
}

// newShared validates fields and wraps them without copying. Callers
// guarantee that nothing else holds a mutable reference to the values.
func newShared(fields Fields) (*IndexTemplate, error) {
	if len(fields.IndexPatterns) == 0 {
		return nil, &ValidationError{Field: "index_patterns", Reason: "must contain at least one pattern"}
	}
	if err := validateText(&fields); err != nil {
		return nil, err
	}
	return &IndexTemplate{fields: fields}, nil
}

// metadataError classifies a metadata normalization failure.
func metadataError(err error) error {
	if errors.Is(err, codec.ErrInvalidUTF8) {
		return &ValidationError{Field: "_meta", Reason: err.Error()}
	}
	return &FormatError{Field: "_meta", Reason: "unsupported value", Err: err}
}

// validateText rejects strings outside metadata that are not valid
// UTF-8; the binary decoder refuses them. Metadata strings are checked
// by codec.Normalize.
func validateText(fields *Fields) error {
	if err := validateStrings("index_patterns", fields.IndexPatterns); err != nil {
		return err
	}
	if err := validateStrings("composed_of", fields.ComposedOf); err != nil {
		return err
	}
	tmpl := fields.Template
	if tmpl == nil {
		return nil
	}
	for _, key := range sortedKeys(tmpl.Settings) {
		if err := validateString("template.settings", key); err != nil {
			return err
		}
		if err := validateString("template.settings."+key, tmpl.Settings[key]); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(tmpl.Aliases) {
		if err := validateString("template.aliases", name); err != nil {
			return err
		}
		alias := tmpl.Aliases[name]
		if alias.IndexRouting != nil {
			if err := validateString("template.aliases."+name+".index_routing", *alias.IndexRouting); err != nil {
				return err
			}
		}
		if alias.SearchRouting != nil {
			if err := validateString("template.aliases."+name+".search_routing", *alias.SearchRouting); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateStrings(field string, values []string) error {
	for i, value := range values {
		if err := validateString(fmt.Sprintf("%s[%d]", field, i), value); err != nil {
			return err
		}
	}
	return nil
}

func validateString(field, value string) error {
	if !utf8.ValidString(value) {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%q is not valid UTF-8", value)}
	}
	return nil
}

// IndexPatterns returns the index patterns.
func (t *IndexTemplate) IndexPatterns() []string { return t.fields.IndexPatterns }

// Template returns the template unit, or nil when absent.
func (t *IndexTemplate) Template() *Template { return t.fields.Template }

// ComposedOf returns the component template names, or nil when absent.
func (t *IndexTemplate) ComposedOf() []string { return t.fields.ComposedOf }

// Priority returns the priority and whether it is present.
func (t *IndexTemplate) Priority() (uint64, bool) { return optional(t.fields.Priority) }

// Version returns the user version and whether it is present.
func (t *IndexTemplate) Version() (uint64, bool) { return optional(t.fields.Version) }

// Metadata returns the metadata map, or nil when absent.
func (t *IndexTemplate) Metadata() map[string]any { return t.fields.Metadata }

// Fields returns a deep copy of the template's fields.
func (t *IndexTemplate) Fields() Fields {
	return Fields{
		IndexPatterns: slices.Clone(t.fields.IndexPatterns),
		Template:      t.fields.Template.clone(),
		ComposedOf:    slices.Clone(t.fields.ComposedOf),
		Priority:      clonePointer(t.fields.Priority),
		Version:       clonePointer(t.fields.Version),
		Metadata:      codec.CloneMap(t.fields.Metadata),
	}
}

// Equal reports whether t and other have equal fields. Mappings and
// alias filters compare by content, not by compressed bytes.
func (t *IndexTemplate) Equal(other *IndexTemplate) bool {
	if t == nil || other == nil {
		return t == nil && other == nil
	}
	for _, field := range allFields {
		if !field.equal(&t.fields, &other.fields) {
			return false
		}
	}
	return true
}

// Equal reports whether two template units are equal. Two nil units
// are equal.
func (tmpl *Template) Equal(other *Template) bool {
	if tmpl == nil || other == nil {
		return tmpl == nil && other == nil
	}
	if !equalStringMaps(tmpl.Settings, other.Settings) {
		return false
	}
	if !tmpl.Mappings.Equal(other.Mappings) {
		return false
	}
	if (tmpl.Aliases == nil) != (other.Aliases == nil) || len(tmpl.Aliases) != len(other.Aliases) {
		return false
	}
	for name, alias := range tmpl.Aliases {
		otherAlias, present := other.Aliases[name]
		if !present || !alias.Equal(otherAlias) {
			return false
		}
	}
	return true
}

// Equal reports whether two alias descriptors are equal.
func (alias AliasMetadata) Equal(other AliasMetadata) bool {
	return alias.Filter.Equal(other.Filter) &&
		equalPointers(alias.IndexRouting, other.IndexRouting) &&
		equalPointers(alias.SearchRouting, other.SearchRouting) &&
		equalPointers(alias.IsHidden, other.IsHidden) &&
		equalPointers(alias.IsWriteIndex, other.IsWriteIndex)
}

// clone copies the unit's maps. Compressed documents are immutable and
// shared.
func (tmpl *Template) clone() *Template {
	if tmpl == nil {
		return nil
	}
	result := &Template{
		Settings: maps.Clone(tmpl.Settings),
		Mappings: tmpl.Mappings,
	}
	if tmpl.Aliases != nil {
		result.Aliases = make(map[string]AliasMetadata, len(tmpl.Aliases))
		for name, alias := range tmpl.Aliases {
			result.Aliases[name] = AliasMetadata{
				Filter:        alias.Filter,
				IndexRouting:  clonePointer(alias.IndexRouting),
				SearchRouting: clonePointer(alias.SearchRouting),
				IsHidden:      clonePointer(alias.IsHidden),
				IsWriteIndex:  clonePointer(alias.IsWriteIndex),
			}
		}
	}
	return result
}

// equalStrings compares string slices, treating nil and empty as
// different.
func equalStrings(left, right []string) bool {
	return (left == nil) == (right == nil) && slices.Equal(left, right)
}

func equalStringMaps(left, right map[string]string) bool {
	return (left == nil) == (right == nil) && maps.Equal(left, right)
}

func equalPointers[T comparable](left, right *T) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	return *left == *right
}

func clonePointer[T any](value *T) *T {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func optional[T any](value *T) (T, bool) {
	if value == nil {
		var zero T
		return zero, false
	}
	return *value, true
}
