// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp implements a Model Context Protocol server over HTTP
// with Server-Sent Events transport.
//
// The server speaks JSON-RPC 2.0. Clients open a long-lived SSE stream
// (GET /sse), receive an endpoint event naming the session's message
// URL, and POST JSON-RPC requests there; responses flow back over the
// stream as message events.
//
// Tool failures are reported as tool results with isError set, never
// as JSON-RPC errors. A JSON-RPC error would tear down the client's
// request loop; an isError result keeps the conversation alive and
// gives the model text it can react to. Results additionally carry an
// errorInfo object ({category, retryable}) so callers can distinguish
// bad input from transient outages programmatically.
//
// Key exports: Server, Tool, SSEHandler, ToolError.
package mcp
