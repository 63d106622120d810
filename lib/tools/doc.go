// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package tools defines the Bitbucket pull-request review tool set
// exposed over MCP: fetching PR details and diffs, reading repository
// files, and listing, adding, and updating review feedback.
//
// Tool results aimed at the model are compact JSON summaries rather
// than raw Bitbucket payloads: the full API objects are dominated by
// hypermedia links that waste agent context. Errors carry categories
// (validation, not_found, forbidden, transient, internal) derived from
// the underlying Bitbucket error.
//
// Key exports: Registry, New.
package tools
