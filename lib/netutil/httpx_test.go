// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"strings"
	"testing"
)

func TestReadResponse(t *testing.T) {
	data, err := ReadResponse(strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("ReadResponse = %q, want %q", data, "hello")
	}
}

func TestDecodeResponse(t *testing.T) {
	var result struct {
		Name string `json:"name"`
	}
	if err := DecodeResponse(strings.NewReader(`{"name":"pr-review"}`), &result); err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if result.Name != "pr-review" {
		t.Errorf("Name = %q, want %q", result.Name, "pr-review")
	}
}

func TestDecodeResponseInvalidJSON(t *testing.T) {
	var result map[string]any
	if err := DecodeResponse(strings.NewReader("not json"), &result); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestErrorBody(t *testing.T) {
	if got := ErrorBody(strings.NewReader("boom")); got != "boom" {
		t.Errorf("ErrorBody = %q, want %q", got, "boom")
	}
}
