// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the MCP server.
//
// Configuration layers, lowest precedence first:
//
//  1. Built-in defaults ([Default])
//  2. An optional YAML file named by BITBUCKET_MCP_CONFIG or --config
//  3. Environment variables
//
// Environment wins so a deployed container is reconfigurable at launch
// (bind host, port, log verbosity) without a rebuild. There is no
// config file discovery; a file is only read when explicitly named.
//
// Recognized environment variables: BITBUCKET_CLIENT_ID,
// BITBUCKET_CLIENT_SECRET (or BITBUCKET_CLIENT_SECRET_FILE),
// BITBUCKET_API_BASE, BITBUCKET_AUTH_URL, MCP_SERVER_HOST,
// MCP_SERVER_PORT, MCP_SERVER_NAME, AUTH_MODE, GLEAN_INSTANCE,
// ALLOWED_ORIGINS, LOG_LEVEL, MAX_DIFF_BYTES.
package config
