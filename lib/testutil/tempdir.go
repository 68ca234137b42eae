// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// ConfigFile returns the path of a not-yet-existing config file inside
// a fresh temporary directory. The parent directory is deliberately
// left uncreated so callers exercise directory creation on save.
func ConfigFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config", "config.json")
}

// WriteFile writes content to name under directory, creating parent
// directories, and returns the full path.
func WriteFile(t *testing.T, directory, name, content string) string {
	t.Helper()
	path := filepath.Join(directory, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
