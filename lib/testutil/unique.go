// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer. Use it for file names and pattern
// names that must not collide across subtests.
//
//	name := testutil.UniqueID("logs") // "logs-1", "logs-2", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}

// WriteFile writes content to a uniquely named file with the given
// extension inside t.TempDir() and returns its path.
//
//	path := testutil.WriteFile(t, "template", ".json", `{"index_patterns": ["a*"]}`)
func WriteFile(t *testing.T, prefix, extension, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), UniqueID(prefix)+extension)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
