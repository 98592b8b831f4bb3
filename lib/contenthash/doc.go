// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package contenthash provides domain-separated BLAKE3 content hashes
// for cluster metadata values.
//
// Every hash is computed in keyed mode with a fixed 32-byte domain key,
// so the same bytes hashed for two different purposes never collide.
// Two domains exist today:
//
//   - [DocumentDomain] -- canonical content of an opaque structured
//     document (index mappings, alias filters). Equality of compressed
//     documents is equality of these digests.
//   - [TemplateDomain] -- the canonical field stream of a whole index
//     template, used as the template's structural hash.
//
// The API surface:
//
//   - [Sum] -- one-shot keyed hash of a byte slice
//   - [New] -- streaming [Hasher] for values assembled field by field
//   - [Format] and [Parse] -- canonical hex representation used in CLI
//     output and logs
//
// This package has no dependencies on other packages in this module.
package contenthash
