// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFromEnvLiteral(t *testing.T) {
	t.Setenv("TEST_SECRET", "  s3cret \n")

	value, err := FromEnv("TEST_SECRET")
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if value != "s3cret" {
		t.Errorf("FromEnv = %q, want %q", value, "s3cret")
	}
}

func TestFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_SECRET", "")
	t.Setenv("TEST_SECRET_FILE", path)

	value, err := FromEnv("TEST_SECRET")
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if value != "from-file" {
		t.Errorf("FromEnv = %q, want %q", value, "from-file")
	}
}

func TestFromEnvUnset(t *testing.T) {
	t.Setenv("TEST_SECRET", "")
	t.Setenv("TEST_SECRET_FILE", "")

	value, err := FromEnv("TEST_SECRET")
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if value != "" {
		t.Errorf("FromEnv = %q, want empty", value)
	}
}

func TestFromFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := FromFile(path); err == nil {
		t.Fatal("expected error for empty secret file")
	}
}

func TestFromFileMissing(t *testing.T) {
	if _, err := FromFile(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestZero(t *testing.T) {
	data := []byte("sensitive")
	Zero(data)
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d not zeroed", i)
		}
	}
}
