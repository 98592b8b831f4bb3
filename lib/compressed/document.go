// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compressed

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bureau-foundation/clustermeta/lib/codec"
	"github.com/bureau-foundation/clustermeta/lib/contenthash"
)

// MaxSize is the largest uncompressed document accepted, in bytes.
// Declared sizes above this are rejected before any allocation.
const MaxSize = 64 << 20

// Document is an immutable compressed structured document. The zero
// value is not valid; use one of the constructors. Documents are
// always handled by pointer, and a nil *Document means "absent".
type Document struct {
	algorithm Algorithm
	data      []byte
	size      int
	digest    contenthash.Hash
}

// FromValue normalizes value, which must be an object, serializes it
// as canonical JSON, and compresses the result with algorithm.
func FromValue(value any, algorithm Algorithm) (*Document, error) {
	if !algorithm.Valid() {
		return nil, fmt.Errorf("unsupported compression algorithm %d", algorithm)
	}
	canonical, err := canonicalJSON(value)
	if err != nil {
		return nil, err
	}
	data, used, err := compress(canonical, algorithm)
	if err != nil {
		return nil, err
	}
	return &Document{
		algorithm: used,
		data:      data,
		size:      len(canonical),
		digest:    contenthash.Sum(contenthash.DocumentDomain, canonical),
	}, nil
}

// FromJSON parses JSON text holding an object and builds a document
// from it as [FromValue] does.
func FromJSON(text []byte, algorithm Algorithm) (*Document, error) {
	value, err := decodeJSON(text)
	if err != nil {
		return nil, err
	}
	return FromValue(value, algorithm)
}

// FromCompressed adopts a compressed block as received from another
// node. The block is decompressed once to verify its declared size and
// to compute the content digest; the compressed bytes are kept as
// given. The caller must not modify data afterwards.
func FromCompressed(algorithm Algorithm, size int, data []byte) (*Document, error) {
	if !algorithm.Valid() {
		return nil, fmt.Errorf("unsupported compression algorithm %d", algorithm)
	}
	if size < 0 || size > MaxSize {
		return nil, fmt.Errorf("declared document size %d outside [0, %d]", size, MaxSize)
	}
	content, err := decompress(data, algorithm, size)
	if err != nil {
		return nil, err
	}
	value, err := decodeJSON(content)
	if err != nil {
		return nil, err
	}
	canonical, err := canonicalJSON(value)
	if err != nil {
		return nil, err
	}
	return &Document{
		algorithm: algorithm,
		data:      data,
		size:      size,
		digest:    contenthash.Sum(contenthash.DocumentDomain, canonical),
	}, nil
}

// Algorithm returns the compression algorithm of the stored bytes.
func (d *Document) Algorithm() Algorithm { return d.algorithm }

// Size returns the uncompressed length in bytes.
func (d *Document) Size() int { return d.size }

// Bytes returns the compressed block. The slice is shared and must
// not be modified.
func (d *Document) Bytes() []byte { return d.data }

// Digest returns the BLAKE3 digest of the canonical content. Equal
// documents have equal digests.
func (d *Document) Digest() contenthash.Hash { return d.digest }

// Equal reports whether d and other hold the same structured content.
// Two nil documents are equal; a nil and a non-nil document are not.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == nil && other == nil
	}
	return d.digest == other.digest
}

// Content returns the decompressed bytes exactly as stored.
func (d *Document) Content() ([]byte, error) {
	return decompress(d.data, d.algorithm, d.size)
}

// Value decompresses and decodes the document into its canonical
// tree.
func (d *Document) Value() (map[string]any, error) {
	content, err := d.Content()
	if err != nil {
		return nil, err
	}
	return decodeJSON(content)
}

// String summarizes the document for logs.
func (d *Document) String() string {
	if d == nil {
		return "<absent>"
	}
	return fmt.Sprintf("%s document, %d bytes (%d compressed), %s", d.algorithm, d.size, len(d.data), d.digest.String()[:12])
}

// decodeJSON parses text that must hold exactly one JSON object and
// returns it in canonical form.
func decodeJSON(text []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(text))
	decoder.UseNumber()
	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if decoder.More() {
		return nil, fmt.Errorf("decoding document: trailing data after JSON value")
	}
	object, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document root is %s, want object", describe(raw))
	}
	return codec.NormalizeMap(object)
}

// canonicalJSON encodes value with sorted keys, normalized numbers,
// and no HTML escaping or trailing newline.
func canonicalJSON(value any) ([]byte, error) {
	normalized, err := codec.Normalize(value)
	if err != nil {
		return nil, fmt.Errorf("normalizing document: %w", err)
	}
	if _, ok := normalized.(map[string]any); !ok {
		return nil, fmt.Errorf("document root is %s, want object", describe(normalized))
	}
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(normalized); err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return bytes.TrimSuffix(buffer.Bytes(), []byte("\n")), nil
}

func describe(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}
