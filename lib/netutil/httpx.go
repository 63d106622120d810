// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP response readers.
//
// All Bitbucket API response bodies are read through these helpers so
// that a misbehaving or malicious server cannot exhaust memory with an
// unbounded response. They are for JSON API responses and raw file or
// diff fetches, not for the SSE stream, which is written
// incrementally.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize bounds API response body reads: 64 MB. Legitimate
// Bitbucket responses (PR metadata, comment pages, diffs, file
// contents) are orders of magnitude smaller; the limit only exists to
// stop a pathological response from exhausting memory.
const MaxResponseSize int64 = 64 << 20

// ReadResponse reads an API response body up to MaxResponseSize bytes.
// Use instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a JSON API response body (up to MaxResponseSize
// bytes) and decodes it into v. Replaces the io.ReadAll + json.Unmarshal
// pattern.
func DecodeResponse(body io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody reads an HTTP error response body and returns it as a
// string for diagnostic error messages. Read errors are ignored; a
// partial or empty body is still useful in an error message.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	return string(data)
}
