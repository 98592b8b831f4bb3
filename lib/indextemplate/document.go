// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package indextemplate

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/bureau-foundation/clustermeta/lib/codec"
	"github.com/bureau-foundation/clustermeta/lib/compressed"
)

// Structured document schema. Every object level is strict: a name
// not listed here is a *SchemaError.
//
//	{
//	  "index_patterns": ["logs-*"],          required, non-empty
//	  "template": {
//	    "settings": {"index": {"number_of_shards": 1}},
//	    "mappings": {"properties": {...}},
//	    "aliases": {
//	      "logs": {"filter": {...}, "routing": "r", "index_routing": "r",
//	               "search_routing": "r", "is_hidden": false, "is_write_index": true}
//	    }
//	  },
//	  "composed_of": ["component-a"],
//	  "priority": 100,
//	  "version": 3,
//	  "_meta": {...}                         "metadata" accepted as a synonym
//	}
//
// A null value for an optional field is the same as leaving it out.

// ParseOptions control how documents embedded in a template are
// stored.
type ParseOptions struct {
	// Compression is applied to mappings and alias filters.
	Compression compressed.Algorithm
}

// DefaultParseOptions compresses embedded documents with zstd.
var DefaultParseOptions = ParseOptions{Compression: compressed.Zstd}

// Parse builds a template from a decoded structured document using
// DefaultParseOptions. document is typically the result of decoding
// JSON or YAML into an any; its root must be an object.
func Parse(document any) (*IndexTemplate, error) {
	return ParseWithOptions(document, DefaultParseOptions)
}

// ParseWithOptions is Parse with explicit options.
func ParseWithOptions(document any, options ParseOptions) (*IndexTemplate, error) {
	normalized, err := codec.Normalize(document)
	if err != nil {
		return nil, &FormatError{Field: "document", Reason: "unsupported value", Err: err}
	}
	root, ok := normalized.(map[string]any)
	if !ok {
		return nil, &FormatError{Field: "document", Reason: fmt.Sprintf("root is %s, want object", describe(normalized))}
	}

	parser := documentParser{options: options}
	var fields Fields
	metadataKey := ""
	for _, key := range sortedKeys(root) {
		value := root[key]
		if value == nil {
			if key == "index_patterns" {
				return nil, &FormatError{Field: key, Reason: "must not be null"}
			}
			if !isRootField(key) {
				return nil, &SchemaError{Name: key}
			}
			continue
		}
		switch key {
		case "index_patterns":
			fields.IndexPatterns, err = stringList(key, value)
		case "template":
			fields.Template, err = parser.template(value)
		case "composed_of":
			fields.ComposedOf, err = stringList(key, value)
		case "priority":
			fields.Priority, err = unsigned(key, value)
		case "version":
			fields.Version, err = unsigned(key, value)
		case "_meta", "metadata":
			if metadataKey != "" {
				return nil, &FormatError{Field: key, Reason: fmt.Sprintf("duplicates %q", metadataKey)}
			}
			metadataKey = key
			fields.Metadata, err = object(key, value)
		default:
			return nil, &SchemaError{Name: key}
		}
		if err != nil {
			return nil, err
		}
	}
	return newShared(fields)
}

func isRootField(key string) bool {
	switch key {
	case "index_patterns", "template", "composed_of", "priority", "version", "_meta", "metadata":
		return true
	}
	return false
}

type documentParser struct {
	options ParseOptions
}

func (p documentParser) template(value any) (*Template, error) {
	unit, err := object("template", value)
	if err != nil {
		return nil, err
	}
	tmpl := &Template{}
	for _, key := range sortedKeys(unit) {
		member := unit[key]
		path := "template." + key
		switch key {
		case "settings":
			if member == nil {
				continue
			}
			settings, err := object(path, member)
			if err != nil {
				return nil, err
			}
			tmpl.Settings = make(map[string]string)
			if err := flattenSettings(tmpl.Settings, "", settings); err != nil {
				return nil, err
			}
		case "mappings":
			if member == nil {
				continue
			}
			if tmpl.Mappings, err = p.document(path, member); err != nil {
				return nil, err
			}
		case "aliases":
			if member == nil {
				continue
			}
			if tmpl.Aliases, err = p.aliases(member); err != nil {
				return nil, err
			}
		default:
			return nil, &SchemaError{Path: "template", Name: key}
		}
	}
	return tmpl, nil
}

func (p documentParser) document(path string, value any) (*compressed.Document, error) {
	content, err := object(path, value)
	if err != nil {
		return nil, err
	}
	document, err := compressed.FromValue(content, p.options.Compression)
	if err != nil {
		return nil, &FormatError{Field: path, Reason: "cannot store document", Err: err}
	}
	return document, nil
}

func (p documentParser) aliases(value any) (map[string]AliasMetadata, error) {
	entries, err := object("template.aliases", value)
	if err != nil {
		return nil, err
	}
	aliases := make(map[string]AliasMetadata, len(entries))
	for _, name := range sortedKeys(entries) {
		path := "template.aliases." + name
		var descriptor map[string]any
		if entries[name] != nil {
			if descriptor, err = object(path, entries[name]); err != nil {
				return nil, err
			}
		}
		alias, err := p.alias(path, descriptor)
		if err != nil {
			return nil, err
		}
		aliases[name] = alias
	}
	return aliases, nil
}

func (p documentParser) alias(path string, descriptor map[string]any) (AliasMetadata, error) {
	var alias AliasMetadata
	var routing *string
	var err error
	for _, key := range sortedKeys(descriptor) {
		value := descriptor[key]
		field := path + "." + key
		if value == nil {
			switch key {
			case "filter", "routing", "index_routing", "search_routing", "is_hidden", "is_write_index":
				continue
			}
			return alias, &SchemaError{Path: path, Name: key}
		}
		switch key {
		case "filter":
			alias.Filter, err = p.document(field, value)
		case "routing":
			routing, err = routingValue(field, value)
		case "index_routing":
			alias.IndexRouting, err = routingValue(field, value)
		case "search_routing":
			alias.SearchRouting, err = routingValue(field, value)
		case "is_hidden":
			alias.IsHidden, err = boolean(field, value)
		case "is_write_index":
			alias.IsWriteIndex, err = boolean(field, value)
		default:
			return alias, &SchemaError{Path: path, Name: key}
		}
		if err != nil {
			return alias, err
		}
	}
	// "routing" is shorthand for both routings; explicit values win.
	if routing != nil {
		if alias.IndexRouting == nil {
			alias.IndexRouting = clonePointer(routing)
		}
		if alias.SearchRouting == nil {
			alias.SearchRouting = clonePointer(routing)
		}
	}
	return alias, nil
}

// flattenSettings joins nested setting objects with "." and converts
// scalar values to strings.
func flattenSettings(destination map[string]string, prefix string, settings map[string]any) error {
	for _, key := range sortedKeys(settings) {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		field := "template.settings." + name
		switch value := settings[key].(type) {
		case map[string]any:
			if err := flattenSettings(destination, name, value); err != nil {
				return err
			}
			continue
		case string, bool, int64, uint64, float64:
			if _, duplicate := destination[name]; duplicate {
				return &FormatError{Field: field, Reason: "setting defined twice"}
			}
			destination[name] = settingString(value)
		default:
			return &FormatError{Field: field, Reason: fmt.Sprintf("setting value is %s, want scalar or object", describe(value))}
		}
	}
	return nil
}

func settingString(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case uint64:
		return strconv.FormatUint(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'g', -1, 64)
	}
	return ""
}

// Serialize converts t to a structured document in canonical form.
// Absent fields are omitted; no null values are emitted. The result
// parses back to a template equal to t.
func Serialize(t *IndexTemplate) (map[string]any, error) {
	fields := &t.fields
	document := map[string]any{
		"index_patterns": stringsToValues(fields.IndexPatterns),
	}
	if fields.Template != nil {
		unit, err := serializeTemplate(fields.Template)
		if err != nil {
			return nil, err
		}
		document["template"] = unit
	}
	if fields.ComposedOf != nil {
		document["composed_of"] = stringsToValues(fields.ComposedOf)
	}
	if fields.Priority != nil {
		document["priority"] = unsignedValue(*fields.Priority)
	}
	if fields.Version != nil {
		document["version"] = unsignedValue(*fields.Version)
	}
	if fields.Metadata != nil {
		document["_meta"] = codec.CloneMap(fields.Metadata)
	}
	return document, nil
}

func serializeTemplate(tmpl *Template) (map[string]any, error) {
	unit := map[string]any{}
	if tmpl.Settings != nil {
		settings := make(map[string]any, len(tmpl.Settings))
		for key, value := range tmpl.Settings {
			settings[key] = value
		}
		unit["settings"] = settings
	}
	if tmpl.Mappings != nil {
		mappings, err := tmpl.Mappings.Value()
		if err != nil {
			return nil, &FormatError{Field: "template.mappings", Reason: "cannot read document", Err: err}
		}
		unit["mappings"] = mappings
	}
	if tmpl.Aliases != nil {
		aliases := make(map[string]any, len(tmpl.Aliases))
		for name, alias := range tmpl.Aliases {
			descriptor := map[string]any{}
			if alias.Filter != nil {
				filter, err := alias.Filter.Value()
				if err != nil {
					return nil, &FormatError{Field: "template.aliases." + name + ".filter", Reason: "cannot read document", Err: err}
				}
				descriptor["filter"] = filter
			}
			if alias.IndexRouting != nil {
				descriptor["index_routing"] = *alias.IndexRouting
			}
			if alias.SearchRouting != nil {
				descriptor["search_routing"] = *alias.SearchRouting
			}
			if alias.IsHidden != nil {
				descriptor["is_hidden"] = *alias.IsHidden
			}
			if alias.IsWriteIndex != nil {
				descriptor["is_write_index"] = *alias.IsWriteIndex
			}
			aliases[name] = descriptor
		}
		unit["aliases"] = aliases
	}
	return unit, nil
}

func stringsToValues(values []string) []any {
	result := make([]any, len(values))
	for i, value := range values {
		result[i] = value
	}
	return result
}

// unsignedValue returns value in canonical form (see lib/codec).
func unsignedValue(value uint64) any {
	if value <= math.MaxInt64 {
		return int64(value)
	}
	return value
}

func object(field string, value any) (map[string]any, error) {
	result, ok := value.(map[string]any)
	if !ok {
		return nil, &FormatError{Field: field, Reason: fmt.Sprintf("is %s, want object", describe(value))}
	}
	return result, nil
}

func stringList(field string, value any) ([]string, error) {
	elements, ok := value.([]any)
	if !ok {
		return nil, &FormatError{Field: field, Reason: fmt.Sprintf("is %s, want array of strings", describe(value))}
	}
	result := make([]string, 0, len(elements))
	for i, element := range elements {
		text, ok := element.(string)
		if !ok {
			return nil, &FormatError{Field: fmt.Sprintf("%s[%d]", field, i), Reason: fmt.Sprintf("is %s, want string", describe(element))}
		}
		result = append(result, text)
	}
	return slices.Clip(result), nil
}

func unsigned(field string, value any) (*uint64, error) {
	switch typed := value.(type) {
	case int64:
		if typed < 0 {
			return nil, &FormatError{Field: field, Reason: fmt.Sprintf("%d is negative", typed)}
		}
		result := uint64(typed)
		return &result, nil
	case uint64:
		return &typed, nil
	default:
		return nil, &FormatError{Field: field, Reason: fmt.Sprintf("is %s, want non-negative integer", describe(value))}
	}
}

func routingValue(field string, value any) (*string, error) {
	switch typed := value.(type) {
	case string:
		return &typed, nil
	case int64, uint64:
		// Numeric routing values are accepted and kept as text.
		text := settingString(typed)
		return &text, nil
	default:
		return nil, &FormatError{Field: field, Reason: fmt.Sprintf("is %s, want string", describe(value))}
	}
}

func boolean(field string, value any) (*bool, error) {
	typed, ok := value.(bool)
	if !ok {
		return nil, &FormatError{Field: field, Reason: fmt.Sprintf("is %s, want boolean", describe(value))}
	}
	return &typed, nil
}

// describe names the JSON type of a canonical value for error messages.
func describe(value any) string {
	switch typed := value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case int64, uint64:
		return "integer"
	case float64:
		return fmt.Sprintf("number %v", typed)
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
