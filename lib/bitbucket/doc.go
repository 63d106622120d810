// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package bitbucket provides a typed Go client for the Bitbucket Cloud
// REST API 2.0.
//
// The client authenticates via OAuth 2.0 client credentials (preferred,
// workspace-level service auth) or a static access token. It handles
// token renewal before expiry, rate limiting (429 with Retry-After and
// a single automatic retry), pagination (the "next" URL embedded in
// list response bodies), and structured error mapping.
//
// All requests are made over HTTPS. The client refuses non-HTTPS base
// URLs. Workspace and repository slugs are validated before they are
// interpolated into request paths, so malformed tool arguments cannot
// traverse into unrelated API resources.
package bitbucket
