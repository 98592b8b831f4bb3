// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package indextemplate

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"github.com/bureau-foundation/clustermeta/lib/codec"
	"github.com/bureau-foundation/clustermeta/lib/compressed"
	"github.com/bureau-foundation/clustermeta/lib/contenthash"
)

// Binary layout of a template, fields in [Field] order:
//
//	index_patterns  varint count, then count strings
//	template        flag [settings flag [count (key, value)...]]
//	                     [mappings flag [document]]
//	                     [aliases flag [count (name, alias)...]]
//	composed_of     flag [varint count, then count strings]
//	priority        flag [varint]
//	version         flag [varint]
//	_meta           flag [varint length, deterministic CBOR map]
//
//	string    varint byte length, UTF-8 bytes
//	document  algorithm byte, varint uncompressed size, varint length, compressed bytes
//	alias     filter flag [document], index_routing flag [string],
//	          search_routing flag [string], is_hidden flag [bool byte],
//	          is_write_index flag [bool byte]
//
// Flags are one byte: 0 absent, 1 present. Map entries are sorted by
// key so equal templates encode to identical bytes.

// Write encodes t to w. The writer is used only for the duration of
// the call.
func Write(w io.Writer, t *IndexTemplate) error {
	e := newEncoder(w)
	for _, field := range allFields {
		writeField(e, field, &t.fields)
	}
	if e.err != nil {
		return fmt.Errorf("indextemplate: writing template: %w", e.err)
	}
	return nil
}

// Read decodes one template from r. It reads exactly the bytes of the
// known fields and nothing after them, so data appended by a newer
// encoder remains in r.
func Read(r io.Reader) (*IndexTemplate, error) {
	d := newDecoder(r)
	var fields Fields
	for _, field := range allFields {
		if err := readField(d, field, &fields); err != nil {
			return nil, err
		}
	}
	return newShared(fields)
}

// MarshalBinary returns the binary encoding of t.
func (t *IndexTemplate) MarshalBinary() ([]byte, error) {
	var buffer bytes.Buffer
	if err := Write(&buffer, t); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Decode decodes a template from the start of data. Bytes after the
// known fields are ignored.
func Decode(data []byte) (*IndexTemplate, error) {
	return Read(bytes.NewReader(data))
}

// Hash returns a digest of the template consistent with Equal: equal
// templates hash equal. Documents contribute their content digest, so
// the hash does not depend on how mappings were compressed.
func (t *IndexTemplate) Hash() contenthash.Hash {
	hasher := contenthash.New(contenthash.TemplateDomain)
	e := newEncoder(hasher)
	e.hashing = true
	for _, field := range allFields {
		writeField(e, field, &t.fields)
	}
	if e.err != nil {
		// The hasher never fails and metadata is normalized at
		// construction, so encoding cannot fail here.
		panic("indextemplate: hashing template: " + e.err.Error())
	}
	return hasher.Sum()
}

// writeField writes one field with its presence flag (every field but
// index_patterns is optional).
func writeField(e *encoder, field Field, fields *Fields) {
	switch field {
	case FieldIndexPatterns:
		e.strings(fields.IndexPatterns)
	case FieldTemplate:
		if e.presence(fields.Template != nil) {
			writeTemplate(e, fields.Template)
		}
	case FieldComposedOf:
		if e.presence(fields.ComposedOf != nil) {
			e.strings(fields.ComposedOf)
		}
	case FieldPriority:
		if e.presence(fields.Priority != nil) {
			e.uvarint(*fields.Priority)
		}
	case FieldVersion:
		if e.presence(fields.Version != nil) {
			e.uvarint(*fields.Version)
		}
	case FieldMetadata:
		if e.presence(fields.Metadata != nil) {
			writeMetadata(e, fields.Metadata)
		}
	}
}

// readField reads one field written by writeField into fields.
func readField(d *decoder, field Field, fields *Fields) error {
	name := field.String()
	if field == FieldIndexPatterns {
		patterns, err := d.strings(name)
		if err != nil {
			return err
		}
		fields.IndexPatterns = patterns
		return nil
	}

	present, err := d.presence(name)
	if err != nil || !present {
		return err
	}
	switch field {
	case FieldTemplate:
		fields.Template, err = readTemplate(d)
	case FieldComposedOf:
		fields.ComposedOf, err = d.strings(name)
	case FieldPriority:
		fields.Priority, err = readUint(d, name)
	case FieldVersion:
		fields.Version, err = readUint(d, name)
	case FieldMetadata:
		fields.Metadata, err = readMetadata(d)
	}
	return err
}

func readUint(d *decoder, field string) (*uint64, error) {
	value, err := d.uvarint(field)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func writeTemplate(e *encoder, tmpl *Template) {
	if e.presence(tmpl.Settings != nil) {
		keys := sortedKeys(tmpl.Settings)
		e.uvarint(uint64(len(keys)))
		for _, key := range keys {
			e.string(key)
			e.string(tmpl.Settings[key])
		}
	}
	if e.presence(tmpl.Mappings != nil) {
		writeDocument(e, tmpl.Mappings)
	}
	if e.presence(tmpl.Aliases != nil) {
		names := sortedKeys(tmpl.Aliases)
		e.uvarint(uint64(len(names)))
		for _, name := range names {
			e.string(name)
			writeAlias(e, tmpl.Aliases[name])
		}
	}
}

func readTemplate(d *decoder) (*Template, error) {
	tmpl := &Template{}

	present, err := d.presence("template.settings")
	if err != nil {
		return nil, err
	}
	if present {
		count, err := d.length("template.settings")
		if err != nil {
			return nil, err
		}
		tmpl.Settings = make(map[string]string, min(count, 1024))
		for range count {
			key, err := d.string("template.settings")
			if err != nil {
				return nil, err
			}
			value, err := d.string("template.settings." + key)
			if err != nil {
				return nil, err
			}
			if _, duplicate := tmpl.Settings[key]; duplicate {
				return nil, &FormatError{Field: "template.settings", Reason: fmt.Sprintf("duplicate key %q", key)}
			}
			tmpl.Settings[key] = value
		}
	}

	present, err = d.presence("template.mappings")
	if err != nil {
		return nil, err
	}
	if present {
		if tmpl.Mappings, err = readDocument(d, "template.mappings"); err != nil {
			return nil, err
		}
	}

	present, err = d.presence("template.aliases")
	if err != nil {
		return nil, err
	}
	if present {
		count, err := d.length("template.aliases")
		if err != nil {
			return nil, err
		}
		tmpl.Aliases = make(map[string]AliasMetadata, min(count, 1024))
		for range count {
			name, err := d.string("template.aliases")
			if err != nil {
				return nil, err
			}
			alias, err := readAlias(d, "template.aliases."+name)
			if err != nil {
				return nil, err
			}
			if _, duplicate := tmpl.Aliases[name]; duplicate {
				return nil, &FormatError{Field: "template.aliases", Reason: fmt.Sprintf("duplicate alias %q", name)}
			}
			tmpl.Aliases[name] = alias
		}
	}
	return tmpl, nil
}

func writeAlias(e *encoder, alias AliasMetadata) {
	if e.presence(alias.Filter != nil) {
		writeDocument(e, alias.Filter)
	}
	if e.presence(alias.IndexRouting != nil) {
		e.string(*alias.IndexRouting)
	}
	if e.presence(alias.SearchRouting != nil) {
		e.string(*alias.SearchRouting)
	}
	if e.presence(alias.IsHidden != nil) {
		e.boolean(*alias.IsHidden)
	}
	if e.presence(alias.IsWriteIndex != nil) {
		e.boolean(*alias.IsWriteIndex)
	}
}

func readAlias(d *decoder, path string) (AliasMetadata, error) {
	var alias AliasMetadata

	present, err := d.presence(path + ".filter")
	if err != nil {
		return alias, err
	}
	if present {
		if alias.Filter, err = readDocument(d, path+".filter"); err != nil {
			return alias, err
		}
	}
	if alias.IndexRouting, err = readOptionalString(d, path+".index_routing"); err != nil {
		return alias, err
	}
	if alias.SearchRouting, err = readOptionalString(d, path+".search_routing"); err != nil {
		return alias, err
	}
	if alias.IsHidden, err = readOptionalBool(d, path+".is_hidden"); err != nil {
		return alias, err
	}
	if alias.IsWriteIndex, err = readOptionalBool(d, path+".is_write_index"); err != nil {
		return alias, err
	}
	return alias, nil
}

func readOptionalString(d *decoder, field string) (*string, error) {
	present, err := d.presence(field)
	if err != nil || !present {
		return nil, err
	}
	value, err := d.string(field)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func readOptionalBool(d *decoder, field string) (*bool, error) {
	present, err := d.presence(field)
	if err != nil || !present {
		return nil, err
	}
	value, err := d.boolean(field)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// writeDocument passes the compressed block through unchanged. In
// hashing mode the content digest stands in for the block.
func writeDocument(e *encoder, document *compressed.Document) {
	if e.hashing {
		digest := document.Digest()
		e.write(digest[:])
		return
	}
	e.byte(byte(document.Algorithm()))
	e.uvarint(uint64(document.Size()))
	e.block(document.Bytes())
}

func readDocument(d *decoder, field string) (*compressed.Document, error) {
	tag, err := d.byte(field)
	if err != nil {
		return nil, err
	}
	algorithm := compressed.Algorithm(tag)
	if !algorithm.Valid() {
		return nil, &FormatError{Field: field, Reason: fmt.Sprintf("unknown compression algorithm %d", tag)}
	}
	size, err := d.length(field)
	if err != nil {
		return nil, err
	}
	data, err := d.block(field)
	if err != nil {
		return nil, err
	}
	document, err := compressed.FromCompressed(algorithm, size, data)
	if err != nil {
		return nil, &FormatError{Field: field, Reason: "invalid document block", Err: err}
	}
	return document, nil
}

func writeMetadata(e *encoder, metadata map[string]any) {
	if e.err != nil {
		return
	}
	data, err := codec.Marshal(metadata)
	if err != nil {
		e.err = fmt.Errorf("encoding _meta: %w", err)
		return
	}
	e.block(data)
}

func readMetadata(d *decoder) (map[string]any, error) {
	data, err := d.block("_meta")
	if err != nil {
		return nil, err
	}
	value, err := codec.UnmarshalValue(data)
	if err != nil {
		return nil, &FormatError{Field: "_meta", Reason: "invalid CBOR block", Err: err}
	}
	metadata, ok := value.(map[string]any)
	if !ok {
		return nil, &FormatError{Field: "_meta", Reason: fmt.Sprintf("CBOR block holds %T, want map", value)}
	}
	return metadata, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
