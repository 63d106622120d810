// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package gleanauth is the inbound authentication middleware that
// keeps the MCP endpoints private to one Glean instance.
//
// Three checks run in order: a Bearer token must be present and
// plausibly shaped, the token must validate against Bitbucket's /user
// endpoint (with a short-lived cache to keep tool latency down), and
// in glean_only mode the request's Origin and Referer headers must
// match the configured Glean instance when present. The User-Agent is
// logged for visibility but never blocks a request on its own.
//
// Health checks, the SSE handshake, the metrics endpoint, and CORS
// preflight requests bypass the middleware entirely.
package gleanauth
