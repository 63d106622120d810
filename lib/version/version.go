// Copyright 2026 The Bitbucket MCP Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build version information. The version
// string is injected at build time via
// -ldflags "-X github.com/gleanwork/bitbucket-mcp/lib/version.version=...".
package version

import (
	"fmt"
	"runtime"
)

// version is set at build time. "dev" for local builds.
var version = "dev"

// Short returns the bare version string.
func Short() string {
	return version
}

// Print writes version information for the named binary to stdout.
func Print(name string) {
	fmt.Printf("%s %s (%s, %s/%s)\n", name, version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
