// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compressed

import (
	"bytes"
	"strings"
	"testing"
)

// largeMapping returns a mapping large and repetitive enough that
// both LZ4 and zstd shrink it.
func largeMapping() map[string]any {
	properties := make(map[string]any)
	for _, name := range []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"} {
		properties[name+"_timestamp"] = map[string]any{"type": "date", "format": "strict_date_optional_time"}
		properties[name+"_message"] = map[string]any{"type": "text", "analyzer": "standard"}
		properties[name+"_keyword"] = map[string]any{"type": "keyword", "ignore_above": 256}
	}
	return map[string]any{"properties": properties}
}

func TestFromValueAlgorithms(t *testing.T) {
	for _, algorithm := range []Algorithm{None, LZ4, Zstd} {
		t.Run(algorithm.String(), func(t *testing.T) {
			document, err := FromValue(largeMapping(), algorithm)
			if err != nil {
				t.Fatalf("FromValue: %v", err)
			}
			if document.Algorithm() != algorithm {
				t.Errorf("Algorithm = %s, want %s", document.Algorithm(), algorithm)
			}
			if algorithm != None && len(document.Bytes()) >= document.Size() {
				t.Errorf("compressed %d bytes is not smaller than %d", len(document.Bytes()), document.Size())
			}

			value, err := document.Value()
			if err != nil {
				t.Fatalf("Value: %v", err)
			}
			again, err := FromValue(value, None)
			if err != nil {
				t.Fatalf("FromValue(Value()): %v", err)
			}
			if !document.Equal(again) {
				t.Error("document does not equal a rebuild of its own content")
			}
		})
	}
}

func TestSmallDocumentFallsBackToNone(t *testing.T) {
	document, err := FromValue(map[string]any{"abc": "defghij"}, Zstd)
	if err != nil {
		t.Fatalf("FromValue: %v", err)
	}
	if document.Algorithm() != None {
		t.Errorf("Algorithm = %s, want none for incompressible content", document.Algorithm())
	}
}

func TestEqualityIgnoresEncoding(t *testing.T) {
	fromZstd, err := FromValue(largeMapping(), Zstd)
	if err != nil {
		t.Fatal(err)
	}
	fromLZ4, err := FromValue(largeMapping(), LZ4)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(fromZstd.Bytes(), fromLZ4.Bytes()) {
		t.Fatal("expected different compressed bytes")
	}
	if !fromZstd.Equal(fromLZ4) {
		t.Error("documents with the same content should be equal regardless of algorithm")
	}

	// Key order and number spelling do not matter either.
	first, err := FromJSON([]byte(`{"b": 1.0, "a": {"y": true, "x": "s"}}`), None)
	if err != nil {
		t.Fatal(err)
	}
	second, err := FromJSON([]byte(`{"a":{"x":"s","y":true},"b":1}`), Zstd)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Equal(second) {
		t.Error("documents differing only in key order and number spelling should be equal")
	}

	different, err := FromJSON([]byte(`{"b": 2}`), None)
	if err != nil {
		t.Fatal(err)
	}
	if first.Equal(different) {
		t.Error("documents with different content compared equal")
	}
}

func TestEqualNil(t *testing.T) {
	var absent *Document
	present, err := FromJSON([]byte(`{}`), None)
	if err != nil {
		t.Fatal(err)
	}
	if !absent.Equal(nil) {
		t.Error("nil documents should be equal")
	}
	if absent.Equal(present) || present.Equal(absent) {
		t.Error("nil and non-nil documents should differ")
	}
}

func TestFromCompressedRoundtrip(t *testing.T) {
	original, err := FromValue(largeMapping(), Zstd)
	if err != nil {
		t.Fatal(err)
	}
	received, err := FromCompressed(original.Algorithm(), original.Size(), original.Bytes())
	if err != nil {
		t.Fatalf("FromCompressed: %v", err)
	}
	if !received.Equal(original) || received.Digest() != original.Digest() {
		t.Error("received document differs from original")
	}
	if !bytes.Equal(received.Bytes(), original.Bytes()) {
		t.Error("FromCompressed should keep the compressed bytes unchanged")
	}
}

func TestFromCompressedErrors(t *testing.T) {
	valid, err := FromValue(largeMapping(), LZ4)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		algorithm Algorithm
		size      int
		data      []byte
		want      string
	}{
		{name: "unknown algorithm", algorithm: 9, size: 2, data: []byte("{}"), want: "unsupported"},
		{name: "negative size", algorithm: None, size: -1, data: nil, want: "outside"},
		{name: "oversized", algorithm: None, size: MaxSize + 1, data: nil, want: "outside"},
		{name: "size mismatch", algorithm: None, size: 5, data: []byte("{}"), want: "does not match"},
		{name: "corrupt lz4", algorithm: LZ4, size: valid.Size(), data: valid.Bytes()[:len(valid.Bytes())/2], want: "lz4"},
		{name: "corrupt zstd", algorithm: Zstd, size: 2, data: []byte("zz"), want: "zstd"},
		{name: "not json", algorithm: None, size: 3, data: []byte("abc"), want: "decoding document"},
		{name: "array root", algorithm: None, size: 2, data: []byte("[]"), want: "want object"},
		{name: "trailing data", algorithm: None, size: 4, data: []byte("{}{}"), want: "trailing"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := FromCompressed(test.algorithm, test.size, test.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error = %q, want substring %q", err, test.want)
			}
		})
	}
}

func TestFromValueRejectsNonObject(t *testing.T) {
	if _, err := FromValue([]any{"a"}, None); err == nil {
		t.Error("FromValue should reject an array root")
	}
	if _, err := FromValue(map[string]any{"a": struct{}{}}, None); err == nil {
		t.Error("FromValue should reject unsupported value types")
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, algorithm := range []Algorithm{None, LZ4, Zstd} {
		parsed, err := ParseAlgorithm(algorithm.String())
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q): %v", algorithm, err)
		}
		if parsed != algorithm {
			t.Errorf("ParseAlgorithm(%q) = %s", algorithm, parsed)
		}
	}
	if _, err := ParseAlgorithm("gzip"); err == nil {
		t.Error("ParseAlgorithm should reject unknown names")
	}
	if got := Algorithm(7).String(); got != "unknown(7)" {
		t.Errorf("String() = %q", got)
	}
}

func TestContentIsCanonical(t *testing.T) {
	document, err := FromJSON([]byte(`{"z": "<tag>", "a": 2.0}`), None)
	if err != nil {
		t.Fatal(err)
	}
	content, err := document.Content()
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"a":2,"z":"<tag>"}`; string(content) != want {
		t.Errorf("Content = %s, want %s", content, want)
	}
}
