// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package indextemplate

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/bureau-foundation/clustermeta/lib/compressed"
)

// plainReader hides any ReadByte method of the wrapped reader.
type plainReader struct{ io.Reader }

func mustMarshal(t *testing.T, template *IndexTemplate) []byte {
	t.Helper()
	data, err := template.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	return data
}

func TestWireRoundtrip(t *testing.T) {
	tests := []struct {
		name   string
		fields Fields
	}{
		{"minimal", Fields{IndexPatterns: []string{"a*"}}},
		{"full", fullFields(t)},
		{"empty containers", Fields{
			IndexPatterns: []string{"a*"},
			Template:      &Template{Settings: map[string]string{}, Aliases: map[string]AliasMetadata{}},
			ComposedOf:    []string{},
			Metadata:      map[string]any{},
		}},
		{"extreme numbers", Fields{
			IndexPatterns: []string{"a*"},
			Priority:      pointer(uint64(0)),
			Version:       pointer(^uint64(0)),
			Metadata:      map[string]any{"big": ^uint64(0), "negative": -12, "ratio": 0.25},
		}},
		{"unicode", Fields{IndexPatterns: []string{"журнал-*", "日志-*"}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			original := mustNew(t, test.fields)
			data := mustMarshal(t, original)

			decoded, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !decoded.Equal(original) {
				t.Fatalf("decoded template differs from original")
			}
			if again := mustMarshal(t, decoded); !bytes.Equal(again, data) {
				t.Errorf("re-encoding changed the bytes:\nfirst  %x\nsecond %x", data, again)
			}
			if decoded.Hash() != original.Hash() {
				t.Errorf("Hash changed across the wire")
			}
		})
	}
}

func TestWireLayout(t *testing.T) {
	minimal := mustNew(t, Fields{IndexPatterns: []string{"a*"}})
	expected := []byte{
		0x01, 0x02, 'a', '*', // index_patterns
		0x00,                 // template
		0x00,                 // composed_of
		0x00,                 // priority
		0x00,                 // version
		0x00,                 // _meta
	}
	if data := mustMarshal(t, minimal); !bytes.Equal(data, expected) {
		t.Errorf("minimal encoding = %x, want %x", data, expected)
	}

	withPriority := mustNew(t, Fields{
		IndexPatterns: []string{"a*"},
		ComposedOf:    []string{},
		Priority:      pointer(uint64(300)),
	})
	expected = []byte{
		0x01, 0x02, 'a', '*',
		0x00,
		0x01, 0x00,       // composed_of present, zero names
		0x01, 0xac, 0x02, // priority 300
		0x00,
		0x00,
	}
	if data := mustMarshal(t, withPriority); !bytes.Equal(data, expected) {
		t.Errorf("encoding = %x, want %x", data, expected)
	}
}

func TestWireStableAcrossConstruction(t *testing.T) {
	// Map insertion order and document compression must not leak into
	// the encoding of metadata and settings.
	first := mustNew(t, Fields{
		IndexPatterns: []string{"a*"},
		Template:      &Template{Settings: map[string]string{"b": "2", "a": "1", "c": "3"}},
		Metadata:      map[string]any{"z": 1, "y": map[string]any{"q": true, "p": false}},
	})
	second := mustNew(t, Fields{
		IndexPatterns: []string{"a*"},
		Template:      &Template{Settings: map[string]string{"c": "3", "a": "1", "b": "2"}},
		Metadata:      map[string]any{"y": map[string]any{"p": false, "q": true}, "z": 1.0},
	})
	if !bytes.Equal(mustMarshal(t, first), mustMarshal(t, second)) {
		t.Error("equal templates encoded to different bytes")
	}
}

func TestReadLeavesTrailingBytes(t *testing.T) {
	original := mustNew(t, fullFields(t))
	data := mustMarshal(t, original)
	trailer := []byte{0xde, 0xad, 0xbe, 0xef}

	for _, wrap := range []struct {
		name   string
		reader func(io.Reader) io.Reader
	}{
		{"byte reader", func(r io.Reader) io.Reader { return r }},
		{"plain reader", func(r io.Reader) io.Reader { return plainReader{r} }},
	} {
		t.Run(wrap.name, func(t *testing.T) {
			source := bytes.NewReader(append(bytes.Clone(data), trailer...))
			decoded, err := Read(wrap.reader(source))
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if !decoded.Equal(original) {
				t.Fatal("decoded template differs from original")
			}
			rest, _ := io.ReadAll(source)
			if !bytes.Equal(rest, trailer) {
				t.Errorf("remaining bytes = %x, want %x", rest, trailer)
			}
		})
	}
}

func TestReadSequentialTemplates(t *testing.T) {
	first := mustNew(t, fullFields(t))
	second := mustNew(t, Fields{IndexPatterns: []string{"second-*"}, Version: pointer(uint64(1))})

	var buffer bytes.Buffer
	if err := Write(&buffer, first); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := Write(&buffer, second); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	for i, expected := range []*IndexTemplate{first, second} {
		decoded, err := Read(&buffer)
		if err != nil {
			t.Fatalf("Read #%d failed: %v", i, err)
		}
		if !decoded.Equal(expected) {
			t.Errorf("template #%d differs from what was written", i)
		}
	}
	if buffer.Len() != 0 {
		t.Errorf("%d bytes left after reading both templates", buffer.Len())
	}
}

func TestDecodeTruncated(t *testing.T) {
	data := mustMarshal(t, mustNew(t, fullFields(t)))
	for length := range len(data) {
		_, err := Decode(data[:length])
		if !IsTruncated(err) {
			t.Fatalf("Decode(first %d of %d bytes) error = %v, want *TruncatedInputError", length, len(data), err)
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	tooLong := binary.AppendUvarint(nil, MaxBlockSize+1)

	tests := []struct {
		name      string
		data      []byte
		predicate func(error) bool
	}{
		{
			name:      "invalid presence flag",
			data:      []byte{0x01, 0x02, 'a', '*', 0x02, 0x00, 0x00, 0x00, 0x00},
			predicate: IsFormat,
		},
		{
			name:      "invalid bool byte",
			data:      []byte{0x01, 0x01, 'a', 0x01, 0x00, 0x00, 0x01, 0x01, 0x01, 'x', 0x00, 0x00, 0x00, 0x01, 0x05},
			predicate: IsFormat,
		},
		{
			name:      "oversized pattern count",
			data:      append(bytes.Clone(tooLong), make([]byte, 16)...),
			predicate: IsFormat,
		},
		{
			name:      "oversized string length",
			data:      append(append([]byte{0x01}, tooLong...), make([]byte, 16)...),
			predicate: IsFormat,
		},
		{
			name:      "varint overflow",
			data:      []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f},
			predicate: IsFormat,
		},
		{
			name:      "invalid utf-8",
			data:      []byte{0x01, 0x02, 0xff, 0xfe, 0x00, 0x00, 0x00, 0x00, 0x00},
			predicate: IsFormat,
		},
		{
			name:      "unknown compression algorithm",
			data:      []byte{0x01, 0x01, 'a', 0x01, 0x00, 0x01, 0x09, 0x02, 0x02, '{', '}'},
			predicate: IsFormat,
		},
		{
			name:      "mappings size mismatch",
			data:      []byte{0x01, 0x01, 'a', 0x01, 0x00, 0x01, 0x00, 0x05, 0x02, '{', '}', 0x00},
			predicate: IsFormat,
		},
		{
			name:      "mappings not an object",
			data:      []byte{0x01, 0x01, 'a', 0x01, 0x00, 0x01, 0x00, 0x02, 0x02, '[', ']', 0x00},
			predicate: IsFormat,
		},
		{
			name:      "metadata not a map",
			data:      []byte{0x01, 0x01, 'a', 0x00, 0x00, 0x00, 0x00, 0x01, 0x01, 0x05},
			predicate: IsFormat,
		},
		{
			name:      "metadata invalid cbor",
			data:      []byte{0x01, 0x01, 'a', 0x00, 0x00, 0x00, 0x00, 0x01, 0x01, 0xff},
			predicate: IsFormat,
		},
		{
			name:      "empty index patterns",
			data:      []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
			predicate: IsValidation,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Decode(test.data)
			if err == nil {
				t.Fatal("Decode succeeded on malformed input")
			}
			if !test.predicate(err) {
				t.Errorf("Decode error = %v (%T), wrong kind", err, err)
			}
		})
	}
}

func TestDecodeDuplicateSettingKey(t *testing.T) {
	data := []byte{
		0x01, 0x01, 'a',
		0x01,       // template present
		0x01, 0x02, // settings present, two entries
		0x01, 'k', 0x01, '1',
		0x01, 'k', 0x01, '2',
		0x00, 0x00, // mappings, aliases absent
		0x00, 0x00, 0x00, 0x00,
	}
	_, err := Decode(data)
	if !IsFormat(err) {
		t.Fatalf("Decode error = %v, want *FormatError", err)
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestReadPassesThroughReaderErrors(t *testing.T) {
	cause := errors.New("disk on fire")
	_, err := Read(failingReader{err: cause})
	if !errors.Is(err, cause) {
		t.Fatalf("Read error = %v, want wrapped %v", err, cause)
	}
	if IsTruncated(err) || IsFormat(err) {
		t.Errorf("reader failure misclassified as a decoding error: %v", err)
	}
}

func TestWireDocumentCompressionPreserved(t *testing.T) {
	content := map[string]any{"properties": map[string]any{"body": map[string]any{"type": "text", "analyzer": "standard"}}}
	for _, algorithm := range []compressed.Algorithm{compressed.None, compressed.LZ4, compressed.Zstd} {
		t.Run(algorithm.String(), func(t *testing.T) {
			mappings := mustDocument(t, content, algorithm)
			original := mustNew(t, Fields{IndexPatterns: []string{"a*"}, Template: &Template{Mappings: mappings}})
			decoded, err := Decode(mustMarshal(t, original))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			got := decoded.Template().Mappings
			if got.Algorithm() != mappings.Algorithm() {
				t.Errorf("algorithm = %s, want %s", got.Algorithm(), mappings.Algorithm())
			}
			if !bytes.Equal(got.Bytes(), mappings.Bytes()) {
				t.Error("compressed bytes changed across the wire")
			}
		})
	}
}
