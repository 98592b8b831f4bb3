// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package indextemplate implements composable index templates as
// versioned, diffable cluster metadata values.
//
// An [IndexTemplate] is an immutable value: index patterns to match,
// an optional template unit (settings, mappings, aliases), the names
// of component templates it is composed of, an optional priority and
// user version, and free-form metadata. Every optional field
// distinguishes absent (nil) from present-but-empty, and that
// distinction survives every encoding.
//
// Templates move through three paths that all agree on [IndexTemplate.Equal]:
//
//   - Structured documents: [Parse] and [Serialize] map to and from a
//     decoded JSON-shaped tree; [ParseJSON] (JSONC accepted),
//     [ParseYAML], [ReadFile], and [EncodeJSON] handle text.
//   - Binary wire encoding: [Write] and [Read] use a fixed field order
//     with one-byte presence flags and varint lengths. Readers never
//     consume bytes past the encoded template, so fields appended by a
//     newer encoder are left for the caller.
//   - Diffs: [Compute] records, per field, whether it was replaced;
//     [Apply] rebuilds the newer version on a replica. [WriteDiff] and
//     [ReadDiff] encode diffs with the same per-field payloads as
//     templates.
//
// Diffs are field-level and whole-value: the template unit and the
// metadata map are replaced as units, never patched.
//
// All operations are pure functions over immutable values and are safe
// for concurrent use. Failures are returned as [ValidationError],
// [FormatError], [SchemaError], or [TruncatedInputError].
package indextemplate
