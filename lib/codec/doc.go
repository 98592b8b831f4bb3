// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR configuration and the canonical
// value model shared by every encoding of cluster metadata.
//
// Cluster metadata crosses three encodings: structured text documents
// (JSON, JSONC, YAML) authored by operators, the compact binary wire
// format exchanged between nodes, and CBOR blocks embedded in that
// wire format for free-form values such as template metadata. Each
// decoder produces its own Go representation of numbers and maps
// (json.Number, uint64 from CBOR, int from YAML, map[any]any, ...).
// [Normalize] folds all of them into one canonical form so that
// equality never depends on which encoding a value arrived through.
//
// The canonical form is:
//
//   - nil, bool, string
//   - int64 for every integer (and every integral float) that fits
//   - uint64 only for integers above math.MaxInt64
//   - float64 for finite non-integral numbers (NaN and infinities are
//     rejected)
//   - []any and map[string]any with canonical elements
//
// The CBOR encoder uses Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, smallest integer encoding, no indefinite-length
// items. Same logical data always produces identical bytes, which is
// what lets the wire encoding of a template be byte-stable.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
package codec
