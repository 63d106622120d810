// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret loads credentials from the environment or from files.
//
// Container deployments inject the Bitbucket OAuth client secret either
// directly in an environment variable or as a mounted file referenced
// by a *_FILE variable (the usual pattern for orchestrator-managed
// secrets). Values are whitespace-trimmed; source buffers are zeroed
// after copying so secret bytes do not linger in freed memory.
package secret

import (
	"fmt"
	"os"
	"strings"
)

// FromEnv resolves a secret from the environment. It checks name first
// (the literal value), then name+"_FILE" (a path to read the value
// from). Returns an empty string without error when neither is set;
// the caller decides whether the secret is required.
func FromEnv(name string) (string, error) {
	if value := os.Getenv(name); value != "" {
		return strings.TrimSpace(value), nil
	}

	path := os.Getenv(name + "_FILE")
	if path == "" {
		return "", nil
	}

	value, err := FromFile(path)
	if err != nil {
		return "", fmt.Errorf("%s_FILE: %w", name, err)
	}
	return value, nil
}

// FromFile reads a secret from path, trimming surrounding whitespace
// (secret files commonly carry a trailing newline). Returns an error
// if the file is empty after trimming.
func FromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	value := strings.TrimSpace(string(data))
	Zero(data)
	if value == "" {
		return "", fmt.Errorf("secret file %s is empty", path)
	}
	return value, nil
}

// Zero overwrites a byte slice. Called on intermediate buffers that
// held secret material.
func Zero(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
