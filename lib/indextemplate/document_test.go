// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package indextemplate

import (
	"errors"
	"maps"
	"math"
	"slices"
	"testing"

	"github.com/bureau-foundation/clustermeta/lib/codec"
	"github.com/bureau-foundation/clustermeta/lib/compressed"
	"github.com/bureau-foundation/clustermeta/lib/testutil"
)

func mustParse(t *testing.T, document map[string]any) *IndexTemplate {
	t.Helper()
	template, err := Parse(document)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return template
}

func TestParseFullDocument(t *testing.T) {
	template := mustParse(t, map[string]any{
		"index_patterns": []any{"logs-*"},
		"template": map[string]any{
			"settings": map[string]any{
				"index":            map[string]any{"number_of_shards": 1, "hidden": true},
				"refresh_interval": "1s",
			},
			"mappings": map[string]any{
				"properties": map[string]any{"message": map[string]any{"type": "text"}},
			},
			"aliases": map[string]any{
				"logs":   map[string]any{"is_write_index": true, "filter": map[string]any{"match_all": map[string]any{}}},
				"hidden": map[string]any{"is_hidden": true},
			},
		},
		"composed_of": []any{"component-a", "component-b"},
		"priority":    100,
		"version":     3,
		"_meta":       map[string]any{"description": "log indices", "managed": true},
	})

	if !slices.Equal(template.IndexPatterns(), []string{"logs-*"}) {
		t.Errorf("IndexPatterns = %v", template.IndexPatterns())
	}
	expectedSettings := map[string]string{
		"index.number_of_shards": "1",
		"index.hidden":           "true",
		"refresh_interval":       "1s",
	}
	if !maps.Equal(template.Template().Settings, expectedSettings) {
		t.Errorf("Settings = %v, want %v", template.Template().Settings, expectedSettings)
	}
	mappings, err := template.Template().Mappings.Value()
	if err != nil {
		t.Fatalf("reading mappings: %v", err)
	}
	expectedMappings := map[string]any{"properties": map[string]any{"message": map[string]any{"type": "text"}}}
	if !codec.EqualMaps(mappings, expectedMappings) {
		t.Errorf("mappings = %v, want %v", mappings, expectedMappings)
	}

	logs := template.Template().Aliases["logs"]
	if logs.IsWriteIndex == nil || !*logs.IsWriteIndex {
		t.Error("logs alias should be the write index")
	}
	if logs.Filter == nil {
		t.Error("logs alias filter missing")
	}
	if logs.IsHidden != nil || logs.IndexRouting != nil {
		t.Error("unset alias properties should be absent")
	}
	if hidden := template.Template().Aliases["hidden"]; hidden.IsHidden == nil || !*hidden.IsHidden {
		t.Error("hidden alias should be hidden")
	}

	if priority, _ := template.Priority(); priority != 100 {
		t.Errorf("priority = %d, want 100", priority)
	}
	if version, _ := template.Version(); version != 3 {
		t.Errorf("version = %d, want 3", version)
	}
	if template.Metadata()["managed"] != true {
		t.Errorf("metadata = %v", template.Metadata())
	}
}

func TestParseSerializeRoundtrip(t *testing.T) {
	original := mustNew(t, fullFields(t))
	document, err := Serialize(original)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	parsed := mustParse(t, document)
	if !parsed.Equal(original) {
		t.Fatalf("Parse(Serialize(t)) differs from t")
	}

	again, err := Serialize(parsed)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if !codec.EqualMaps(again, document) {
		t.Errorf("Serialize is not stable:\nfirst  %v\nsecond %v", document, again)
	}
}

func TestSerializeOmitsAbsentFields(t *testing.T) {
	document, err := Serialize(mustNew(t, Fields{IndexPatterns: []string{"a*"}, ComposedOf: []string{}}))
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	expected := map[string]any{
		"index_patterns": []any{"a*"},
		"composed_of":    []any{},
	}
	testutil.RequireEqual(t, document, expected, "serialized minimal template")
}

func TestParseMetadataKeys(t *testing.T) {
	fromMeta := mustParse(t, map[string]any{"index_patterns": []any{"a*"}, "_meta": map[string]any{"k": "v"}})
	fromMetadata := mustParse(t, map[string]any{"index_patterns": []any{"a*"}, "metadata": map[string]any{"k": "v"}})
	if !fromMeta.Equal(fromMetadata) {
		t.Error(`"metadata" should be a synonym for "_meta"`)
	}

	_, err := Parse(map[string]any{
		"index_patterns": []any{"a*"},
		"_meta":          map[string]any{},
		"metadata":       map[string]any{},
	})
	if !IsFormat(err) {
		t.Errorf("both metadata keys: error = %v, want *FormatError", err)
	}
}

func TestParseNullOptionalFieldsAreAbsent(t *testing.T) {
	template := mustParse(t, map[string]any{
		"index_patterns": []any{"a*"},
		"template":       map[string]any{"settings": nil, "mappings": nil, "aliases": map[string]any{"x": nil}},
		"composed_of":    nil,
		"priority":       nil,
		"version":        nil,
		"_meta":          nil,
	})
	expected := mustNew(t, Fields{
		IndexPatterns: []string{"a*"},
		Template:      &Template{Aliases: map[string]AliasMetadata{"x": {}}},
	})
	if !template.Equal(expected) {
		t.Errorf("null fields were not treated as absent: %+v", template.Fields())
	}
}

func TestParseRoutingShorthand(t *testing.T) {
	tests := []struct {
		name           string
		alias          map[string]any
		expectedIndex  string
		expectedSearch string
	}{
		{"shorthand only", map[string]any{"routing": "r"}, "r", "r"},
		{"explicit search wins", map[string]any{"routing": "r", "search_routing": "s"}, "r", "s"},
		{"explicit index wins", map[string]any{"routing": "r", "index_routing": "i"}, "i", "r"},
		{"numeric routing", map[string]any{"routing": 7}, "7", "7"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			template := mustParse(t, map[string]any{
				"index_patterns": []any{"a*"},
				"template":       map[string]any{"aliases": map[string]any{"x": test.alias}},
			})
			alias := template.Template().Aliases["x"]
			if alias.IndexRouting == nil || *alias.IndexRouting != test.expectedIndex {
				t.Errorf("index_routing = %v, want %q", alias.IndexRouting, test.expectedIndex)
			}
			if alias.SearchRouting == nil || *alias.SearchRouting != test.expectedSearch {
				t.Errorf("search_routing = %v, want %q", alias.SearchRouting, test.expectedSearch)
			}
		})
	}
}

func TestParseSchemaErrors(t *testing.T) {
	tests := []struct {
		name         string
		document     map[string]any
		expectedPath string
		expectedName string
	}{
		{
			name:         "unknown root field",
			document:     map[string]any{"index_patterns": []any{"a*"}, "data_stream": map[string]any{}},
			expectedName: "data_stream",
		},
		{
			name:         "unknown root field with null value",
			document:     map[string]any{"index_patterns": []any{"a*"}, "priorty": nil},
			expectedName: "priorty",
		},
		{
			name:         "unknown template member",
			document:     map[string]any{"index_patterns": []any{"a*"}, "template": map[string]any{"lifecycle": map[string]any{}}},
			expectedPath: "template",
			expectedName: "lifecycle",
		},
		{
			name: "unknown alias property",
			document: map[string]any{"index_patterns": []any{"a*"}, "template": map[string]any{
				"aliases": map[string]any{"x": map[string]any{"is_hiden": true}},
			}},
			expectedPath: "template.aliases.x",
			expectedName: "is_hiden",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.document)
			var schemaError *SchemaError
			if !errors.As(err, &schemaError) {
				t.Fatalf("Parse error = %v, want *SchemaError", err)
			}
			if schemaError.Path != test.expectedPath || schemaError.Name != test.expectedName {
				t.Errorf("SchemaError{Path: %q, Name: %q}, want {%q, %q}",
					schemaError.Path, schemaError.Name, test.expectedPath, test.expectedName)
			}
		})
	}
}

func TestParseFormatErrors(t *testing.T) {
	patterns := []any{"a*"}
	tests := []struct {
		name     string
		document any
	}{
		{"root is array", []any{"a*"}},
		{"root is string", "template"},
		{"null index_patterns", map[string]any{"index_patterns": nil}},
		{"index_patterns is string", map[string]any{"index_patterns": "a*"}},
		{"index pattern is number", map[string]any{"index_patterns": []any{"a*", 3}}},
		{"negative priority", map[string]any{"index_patterns": patterns, "priority": -1}},
		{"fractional priority", map[string]any{"index_patterns": patterns, "priority": 1.5}},
		{"version is string", map[string]any{"index_patterns": patterns, "version": "3"}},
		{"composed_of is object", map[string]any{"index_patterns": patterns, "composed_of": map[string]any{}}},
		{"template is array", map[string]any{"index_patterns": patterns, "template": []any{}}},
		{"mappings is string", map[string]any{"index_patterns": patterns, "template": map[string]any{"mappings": "{}"}}},
		{"settings value is array", map[string]any{"index_patterns": patterns, "template": map[string]any{
			"settings": map[string]any{"index": map[string]any{"routing": []any{"a"}}},
		}}},
		{"setting defined twice", map[string]any{"index_patterns": patterns, "template": map[string]any{
			"settings": map[string]any{"index": map[string]any{"number_of_shards": 1}, "index.number_of_shards": 2},
		}}},
		{"is_hidden is string", map[string]any{"index_patterns": patterns, "template": map[string]any{
			"aliases": map[string]any{"x": map[string]any{"is_hidden": "yes"}},
		}}},
		{"alias is array", map[string]any{"index_patterns": patterns, "template": map[string]any{
			"aliases": map[string]any{"x": []any{}},
		}}},
		{"metadata is array", map[string]any{"index_patterns": patterns, "_meta": []any{}}},
		{"metadata holds infinity", map[string]any{"index_patterns": patterns, "_meta": map[string]any{"x": math.Inf(1)}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.document)
			if !IsFormat(err) {
				t.Errorf("Parse error = %v, want *FormatError", err)
			}
		})
	}
}

func TestParseValidationErrors(t *testing.T) {
	for _, document := range []map[string]any{
		{},
		{"index_patterns": []any{}},
		{"priority": 3},
	} {
		if _, err := Parse(document); !IsValidation(err) {
			t.Errorf("Parse(%v) error = %v, want *ValidationError", document, err)
		}
	}
}

func TestParseWithOptionsCompression(t *testing.T) {
	mappings := map[string]any{"properties": map[string]any{}}
	for i := range 64 {
		mappings["properties"].(map[string]any)[string(rune('a'+i%26))+string(rune('a'+i/26))] = map[string]any{"type": "keyword"}
	}
	document := map[string]any{"index_patterns": []any{"a*"}, "template": map[string]any{"mappings": mappings}}

	plain, err := ParseWithOptions(document, ParseOptions{Compression: compressed.None})
	if err != nil {
		t.Fatalf("ParseWithOptions failed: %v", err)
	}
	packed, err := ParseWithOptions(document, ParseOptions{Compression: compressed.Zstd})
	if err != nil {
		t.Fatalf("ParseWithOptions failed: %v", err)
	}
	if plain.Template().Mappings.Algorithm() != compressed.None {
		t.Errorf("algorithm = %s, want none", plain.Template().Mappings.Algorithm())
	}
	if packed.Template().Mappings.Algorithm() != compressed.Zstd {
		t.Errorf("algorithm = %s, want zstd", packed.Template().Mappings.Algorithm())
	}
	if !plain.Equal(packed) {
		t.Error("compression choice changed template equality")
	}
}
