// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] encapsulates the timeout safety valve pattern
// (select with time.After fallback) so that individual tests do not
// need direct time.After calls.
//
// [RequireEqual] compares structured values with go-cmp and fails with
// a readable diff.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, and [WriteFile] uses it to place fixture files in a
// test's temporary directory.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
