// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compressed provides [Document], an opaque compressed
// structured document such as an index mapping or an alias filter.
//
// Documents travel between nodes in their compressed form: the wire
// codec copies the compressed block through without re-encoding it.
// Equality is defined on content, not bytes. Every document carries
// the BLAKE3 digest of its canonical JSON content (sorted keys,
// normalized numbers, see lib/codec), so two documents holding the
// same structure compare equal even when one was compressed with zstd
// and the other with LZ4, or when their authors ordered keys
// differently.
//
// Three algorithms are supported, identified by one-byte protocol
// constants ([Algorithm]):
//
//   - [None] -- stored as-is; also the fallback when compression
//     would not shrink the content
//   - [LZ4] -- LZ4 block compression, fast
//   - [Zstd] -- zstd at the default level, best ratio for JSON text
//
// Constructors:
//
//   - [FromValue] -- canonicalize a decoded tree and compress it
//   - [FromJSON] -- parse JSON text, then as FromValue
//   - [FromCompressed] -- adopt a block received from the wire,
//     verifying that it decompresses to the declared size and holds a
//     JSON object
package compressed
