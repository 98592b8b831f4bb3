// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package indextemplate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ParseJSON parses a template from JSON text. JSONC extensions (//
// line comments, /* block comments */, trailing commas) are stripped
// first, so hand-written template files can carry documentation.
func ParseJSON(data []byte, options ParseOptions) (*IndexTemplate, error) {
	stripped := jsonc.ToJSON(data)

	decoder := json.NewDecoder(bytes.NewReader(stripped))
	decoder.UseNumber()
	var document any
	if err := decoder.Decode(&document); err != nil {
		return nil, &FormatError{Field: "document", Reason: "invalid JSON", Err: err}
	}
	if decoder.More() {
		return nil, &FormatError{Field: "document", Reason: "trailing data after JSON value"}
	}
	return ParseWithOptions(document, options)
}

// ParseYAML parses a template from YAML text. The YAML document must
// have the same shape as the JSON schema.
func ParseYAML(data []byte, options ParseOptions) (*IndexTemplate, error) {
	var document any
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, &FormatError{Field: "document", Reason: "invalid YAML", Err: err}
	}
	return ParseWithOptions(document, options)
}

// ReadFile reads a template file from disk, choosing YAML for .yaml
// and .yml extensions and JSON (with JSONC extensions) otherwise.
func ReadFile(path string, options ParseOptions) (*IndexTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var template *IndexTemplate
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		template, err = ParseYAML(data, options)
	default:
		template, err = ParseJSON(data, options)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return template, nil
}

// EncodeJSON serializes t as indented JSON with sorted keys.
func EncodeJSON(t *IndexTemplate) ([]byte, error) {
	document, err := Serialize(t)
	if err != nil {
		return nil, err
	}
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(document); err != nil {
		return nil, fmt.Errorf("indextemplate: encoding JSON: %w", err)
	}
	return buffer.Bytes(), nil
}
